package kafka

import "github.com/xdg-go/scram"

// scramConversation adapts an xdg-go/scram exchange to sarama.SCRAMClient.
// sarama creates one per broker connection.
type scramConversation struct {
	hash scram.HashGeneratorFcn
	conv *scram.ClientConversation
}

func (s *scramConversation) Begin(user, password, authzID string) error {
	client, err := s.hash.NewClient(user, password, authzID)
	if err != nil {
		return err
	}
	s.conv = client.NewConversation()
	return nil
}

func (s *scramConversation) Step(challenge string) (string, error) {
	return s.conv.Step(challenge)
}

func (s *scramConversation) Done() bool {
	return s.conv != nil && s.conv.Done()
}
