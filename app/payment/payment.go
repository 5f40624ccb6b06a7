package payment

import (
	"errors"
	"strings"
)

// Method selects where the money for a paid subscription comes from.
type Method string

const (
	// MethodOnline means the amount was already captured by an external
	// gateway; the billing service only records it.
	MethodOnline Method = "online"
	// MethodWallet moves the amount from the subscriber's wallet to the
	// platform wallet through the ledger.
	MethodWallet Method = "wallet"
)

var ErrUnsupportedMethod = errors.New("unsupported payment method")

// ParseMethod normalizes a client-supplied method. An empty value selects
// MethodOnline.
func ParseMethod(value string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(value))) {
	case "", MethodOnline:
		return MethodOnline, nil
	case MethodWallet:
		return MethodWallet, nil
	default:
		return "", ErrUnsupportedMethod
	}
}

// MovesFunds reports whether the method touches the ledger.
func (m Method) MovesFunds() bool {
	return m == MethodWallet
}
