package streetview

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"

	"github.com/rotisserie/eris"
)

// SignURL signs a request URL with a URL-signing secret. Only the path and
// query participate in the signature; the base64-urlsafe digest is appended
// as a signature parameter.
func SignURL(rawURL, secret string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "streetview: parse url for signing")
	}

	key, err := base64.URLEncoding.DecodeString(secret)
	if err != nil {
		return "", eris.Wrap(err, "streetview: decode signing secret")
	}

	mac := hmac.New(sha1.New, key)
	mac.Write([]byte(u.Path + "?" + u.RawQuery))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	return rawURL + "&signature=" + sig, nil
}
