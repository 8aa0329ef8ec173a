package port

import "context"

type DocumentGuard interface {
	// Claim marks source as being processed. It returns false if another
	// caller already holds the claim. The token identifies the owner.
	Claim(ctx context.Context, source string) (token string, claimed bool, err error)

	// Release drops the claim if it is still owned by token
	Release(ctx context.Context, source, token string) error
}
