package phoenix

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/Goden-Gun/channel-bridge/pkg/socket"
)

// EndpointURL builds the websocket URL for endpoint: http(s) schemes become
// ws(s), "/websocket" is appended when missing and params plus vsn are set as
// query parameters.
func EndpointURL(endpoint string, params socket.Payload) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/websocket") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/websocket"
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, paramString(v))
	}
	q.Set("vsn", Vsn)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func paramString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}

// redact strips the query so connect params never reach the logs.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.RawQuery = ""
	return u.String()
}
