package chain

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const issuersPallet = "issuersModule"

// Issuers looks up issuer records in the issuers pallet storage.
type Issuers struct {
	sidecar *Sidecar
}

func NewIssuers(sidecar *Sidecar) *Issuers {
	return &Issuers{sidecar: sidecar}
}

type issuerStorage struct {
	Value *struct {
		Name any `json:"name"`
	} `json:"value"`
}

// IssuerName returns the registered name of the issuer, or "" when the issuer
// is not stored.
func (i *Issuers) IssuerName(ctx context.Context, hash string) (string, error) {
	var resp issuerStorage
	query := url.Values{"keys[]": []string{hash}}
	if err := i.sidecar.getJSON(ctx, "/pallets/"+issuersPallet+"/storage/issuers", query, &resp); err != nil {
		return "", fmt.Errorf("issuer %s: %w", hash, err)
	}
	if resp.Value == nil || resp.Value.Name == nil {
		return "", nil
	}
	name, ok := resp.Value.Name.(string)
	if !ok {
		return "", fmt.Errorf("issuer %s: unexpected name type %T", hash, resp.Value.Name)
	}
	return decodeBytesName(name), nil
}

// decodeBytesName turns a hex-encoded byte string into text when it is valid UTF-8.
func decodeBytesName(name string) string {
	if !strings.HasPrefix(name, "0x") {
		return name
	}
	b, err := hexutil.Decode(name)
	if err != nil || !utf8.Valid(b) {
		return name
	}
	return string(b)
}
