package gridquery

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// tokenPosition is the payload of a continuation token
type tokenPosition struct {
	Version int    `json:"v"`
	Start   int    `json:"start"`
	Hash    string `json:"hash"`
}

// requestShape is the part of a request a token is bound to. Draw, start,
// length and the token itself may change between pages.
type requestShape struct {
	Search  *Search  `json:"search"`
	Order   []Order  `json:"order"`
	Columns []Column `json:"columns"`
}

func hashRequest(req *Request) (string, error) {
	b, err := json.Marshal(requestShape{Search: req.Search, Order: req.Order, Columns: req.Columns})
	if err != nil {
		return "", Wrap(ErrToken, "request json", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(b)), nil
}

// EncodeToken returns a continuation token resuming req at start
func EncodeToken(req *Request, start int) (string, error) {
	hash, err := hashRequest(req)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(tokenPosition{Version: tokenVersion, Start: start, Hash: hash})
	if err != nil {
		return "", Wrap(ErrToken, "token json", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeToken returns the start offset carried by tok. The token must have
// been issued for a request with the same search, order and columns as req.
func DecodeToken(req *Request, tok string) (int, error) {
	b, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return 0, TokenError("base64 decode error")
	}
	var pos tokenPosition
	if err := json.Unmarshal(b, &pos); err != nil {
		return 0, TokenError("token json parse error")
	}
	if pos.Version != tokenVersion {
		return 0, TokenError(fmt.Sprintf("unsupported token version %d", pos.Version))
	}
	if pos.Start < 0 {
		return 0, TokenError("negative start")
	}
	hash, err := hashRequest(req)
	if err != nil {
		return 0, err
	}
	if hash != pos.Hash {
		return 0, TokenError("token does not match request")
	}
	return pos.Start, nil
}
