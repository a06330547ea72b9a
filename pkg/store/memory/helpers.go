package memory

import (
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/doodlesbykumbi/credvault/pkg/model"
)

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func matches(query string, fields []string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// searchable lists the non-secret text of a credential that free-text search
// looks at.
func searchable(c model.Credential, payload model.PayloadRecord) []string {
	fields := []string{c.Name, c.Description}
	switch p := payload.(type) {
	case *model.PasswordPayload:
		fields = append(fields, p.Username, p.URL)
	case *model.APIOAuthPayload:
		fields = append(fields, p.ClientID)
	case *model.KeyCertPayload:
		fields = append(fields, p.KeyType)
	case *model.TokenPayload:
		fields = append(fields, p.Issuer)
	case *model.FilePayload:
		fields = append(fields, p.FileName)
	}
	return fields
}

func sortCredentials(items []model.Credential, by string, desc bool) {
	less := func(a, b model.Credential) bool {
		switch by {
		case "name":
			return a.Name < b.Name
		case "type":
			return a.Type.String() < b.Type.String()
		case "category":
			return a.Category < b.Category
		case "environment":
			return a.Environment < b.Environment
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

func sortAudit(items []model.AuditLog, by string, desc bool) {
	less := func(a, b model.AuditLog) bool {
		switch by {
		case "actor":
			return a.ActorName < b.ActorName
		case "action":
			return a.Action < b.Action
		case "credential":
			return a.CredentialName < b.CredentialName
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func cloneStrings(s pq.StringArray) pq.StringArray {
	if s == nil {
		return nil
	}
	return append(pq.StringArray(nil), s...)
}

func clonePayload(payload model.PayloadRecord) model.PayloadRecord {
	switch p := payload.(type) {
	case *model.PasswordPayload:
		c := *p
		c.Password = cloneBytes(p.Password)
		return &c
	case *model.APIOAuthPayload:
		c := *p
		c.ClientSecret = cloneBytes(p.ClientSecret)
		c.APIKey = cloneBytes(p.APIKey)
		c.Endpoints = cloneStrings(p.Endpoints)
		c.Scopes = cloneStrings(p.Scopes)
		return &c
	case *model.KeyCertPayload:
		c := *p
		c.PrivateKey = cloneBytes(p.PrivateKey)
		c.Passphrase = cloneBytes(p.Passphrase)
		return &c
	case *model.TokenPayload:
		c := *p
		c.Token = cloneBytes(p.Token)
		return &c
	case *model.SecureNotePayload:
		c := *p
		c.Note = cloneBytes(p.Note)
		return &c
	case *model.FilePayload:
		c := *p
		return &c
	}
	return payload
}
