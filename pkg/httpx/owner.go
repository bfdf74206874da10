package httpx

import (
	"net/http"
	"strings"

	"github.com/patientsportal/portal/pkg/jwtx"
)

// DefaultOwnerParam is the path wildcard that carries the resource owner.
const DefaultOwnerParam = "email"

// OwnerAuthenticator admits a request only when the email claim of its bearer
// token names the same account as the {Param} path segment. Emails compare
// case-insensitively.
type OwnerAuthenticator struct {
	Verifier jwtx.Verifier
	Param    string
}

func NewOwnerAuthenticator(v jwtx.Verifier) *OwnerAuthenticator {
	return &OwnerAuthenticator{Verifier: v, Param: DefaultOwnerParam}
}

// Authenticate returns the caller if they own the addressed resource.
func (a *OwnerAuthenticator) Authenticate(r *http.Request) (Principal, error) {
	p, err := AuthenticateBearer(a.Verifier, r)
	if err != nil {
		return Principal{}, err
	}
	if strings.TrimSpace(p.Email) == "" {
		return Principal{}, ErrNoEmailClaim
	}

	param := a.Param
	if param == "" {
		param = DefaultOwnerParam
	}
	owner := strings.TrimSpace(r.PathValue(param))
	if owner == "" {
		return Principal{}, ErrNoPathIdentity
	}

	if !strings.EqualFold(p.Email, owner) {
		return Principal{}, ErrOwnershipMismatch
	}
	return p, nil
}

// OwnerOnly guards next with Authenticate.
func (a *OwnerAuthenticator) OwnerOnly(next PrincipalHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.Authenticate(r)
		if err != nil {
			writeAuthError(w, r, err)
			return
		}
		next(w, r, p)
	})
}
