package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"strings"
)

type ctxKey string

const ClientIDKey ctxKey = "clientID"

// TokenChecker resolves a bearer token to the id of the client holding it.
type TokenChecker interface {
	CheckToken(ctx context.Context, plainToken string) (string, error)
}

var ErrUnknownToken = errors.New("unknown token")

// StaticTokens accepts a fixed set of tokens. Entries may be "client:token"
// to name the client; otherwise the client id is the token's short hash.
type StaticTokens struct {
	hashes  [][32]byte
	clients []string
}

func NewStaticTokens(entries []string) *StaticTokens {
	st := &StaticTokens{}
	for _, e := range entries {
		client, token, ok := strings.Cut(e, ":")
		if !ok {
			token = e
			client = ""
		}
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		sum := sha256.Sum256([]byte(token))
		if client == "" {
			client = hex.EncodeToString(sum[:4])
		}
		st.hashes = append(st.hashes, sum)
		st.clients = append(st.clients, strings.TrimSpace(client))
	}
	return st
}

func (s *StaticTokens) Len() int { return len(s.hashes) }

func (s *StaticTokens) CheckToken(_ context.Context, plainToken string) (string, error) {
	sum := sha256.Sum256([]byte(strings.TrimSpace(plainToken)))
	for i, h := range s.hashes {
		if subtle.ConstantTimeCompare(sum[:], h[:]) == 1 {
			return s.clients[i], nil
		}
	}
	return "", ErrUnknownToken
}

func BearerMiddleware(checker TokenChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// allow OPTIONS (CORS preflight) to pass through
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := ""
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			}
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			client, err := checker.CheckToken(r.Context(), token)
			if err != nil {
				log.Printf("[AUTH] token rejected path=%s: %v", r.URL.Path, err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClientIDKey, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetClientID(ctx context.Context) (string, error) {
	v, ok := ctx.Value(ClientIDKey).(string)
	if !ok || v == "" {
		return "", errors.New("clientID not found in context")
	}
	return v, nil
}
