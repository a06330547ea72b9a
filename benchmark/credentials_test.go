package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/audit"
	"github.com/doodlesbykumbi/credvault/pkg/cipher"
	"github.com/doodlesbykumbi/credvault/pkg/config"
	"github.com/doodlesbykumbi/credvault/pkg/model"
	"github.com/doodlesbykumbi/credvault/pkg/policy"
	"github.com/doodlesbykumbi/credvault/pkg/server"
	"github.com/doodlesbykumbi/credvault/pkg/server/endpoints"
	"github.com/doodlesbykumbi/credvault/pkg/server/middleware"
	"github.com/doodlesbykumbi/credvault/pkg/store/memory"
	"github.com/doodlesbykumbi/credvault/pkg/vault"
)

const benchPolicy = `
users:
  - {id: alice, name: Alice}
groups:
  - {id: editors, name: Editors, actions: [EDIT]}
memberships:
  - {user: alice, group: editors}
`

type fixture struct {
	svc     *vault.Service
	handler http.Handler
	token   string
	ids     []string
}

func newFixture(b *testing.B, credentials int) *fixture {
	b.Helper()
	ctx := context.Background()
	logger, _ := test.NewNullLogger()

	mem := memory.New()
	if _, err := policy.NewLoader(mem).WithLogger(logger).LoadFromReader(ctx, strings.NewReader(benchPolicy)); err != nil {
		b.Fatal(err)
	}
	keys, err := cipher.NewKeyring(bytes.Repeat([]byte{3}, cipher.KeySize))
	if err != nil {
		b.Fatal(err)
	}
	recorder := audit.NewRecorder(mem, mem, mem, audit.Options{Log: logger})
	svc, err := vault.NewService(vault.Options{
		Credentials: mem,
		Users:       mem,
		Keys:        keys,
		Audit:       recorder,
		Log:         logger,
	})
	if err != nil {
		b.Fatal(err)
	}
	auth, err := middleware.NewJWTAuthenticator(middleware.JWTOptions{
		Secret: bytes.Repeat([]byte{9}, 32),
		Log:    logger,
	})
	if err != nil {
		b.Fatal(err)
	}
	cfg, err := config.Load()
	if err != nil {
		b.Fatal(err)
	}

	s := server.NewServer(server.Options{
		Vault:         svc,
		Access:        access.NewBuilder(mem),
		Audit:         recorder,
		Config:        cfg,
		JWTMiddleware: auth,
		Log:           logger,
	})
	endpoints.RegisterAll(s)

	token, err := auth.Issue("alice", time.Hour)
	if err != nil {
		b.Fatal(err)
	}

	f := &fixture{svc: svc, handler: s.Handler(), token: token}
	caller := vault.Caller{UserID: "alice", SourceAddress: "127.0.0.1"}
	for i := 0; i < credentials; i++ {
		res, err := svc.Create(ctx, caller, vault.CreateInput{
			Type: model.CredentialTypePassword,
			Classification: vault.Classification{
				Name:        fmt.Sprintf("db-%d", i),
				Category:    "database",
				Environment: "production",
			},
			Fields: &vault.Password{Username: "svc", Password: "correct horse battery staple"},
		})
		if err != nil {
			b.Fatal(err)
		}
		f.ids = append(f.ids, res.ID)
	}
	return f
}

func (f *fixture) get(path string) *http.Request {
	r := httptest.NewRequest("GET", path, nil)
	r.Header.Set("Authorization", "Bearer "+f.token)
	return r
}

func BenchmarkGetCredentialHandler(b *testing.B) {
	f := newFixture(b, 1)
	path := "/credentials/" + f.ids[0]

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, f.get(path))
		if w.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", w.Code)
		}
	}
}

func BenchmarkListCredentialsHandler(b *testing.B) {
	for _, n := range []int{10, 100} {
		b.Run(fmt.Sprintf("%d credentials", n), func(b *testing.B) {
			f := newFixture(b, n)

			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				w := httptest.NewRecorder()
				f.handler.ServeHTTP(w, f.get("/credentials"))
				if w.Code != http.StatusOK {
					b.Fatalf("unexpected status %d", w.Code)
				}
			}
		})
	}
}

func BenchmarkGetCredentialParallel(b *testing.B) {
	f := newFixture(b, 1)
	caller := vault.Caller{UserID: "alice"}
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := f.svc.Get(ctx, caller, f.ids[0]); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
