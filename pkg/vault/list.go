package vault

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/model"
	"github.com/doodlesbykumbi/credvault/pkg/store"
)

// ListFilter narrows and orders a listing. Sort is one of the keys of
// store.CredentialSortColumns; without it the newest changes come first.
type ListFilter struct {
	Query       string
	Type        *model.CredentialType
	Category    string
	Environment string
	Sort        string
	Order       string
	Limit       int
	Offset      int
}

// List returns the summaries the caller may see: every credential they own
// plus the shared credentials their permissions allow reading. Personal
// credentials of other users are never listed.
func (s *Service) List(ctx context.Context, caller Caller, f ListFilter) (out []Summary, err error) {
	defer s.observe("list", time.Now(), &err)

	filter, err := s.listFilter(f)
	if err != nil {
		return nil, err
	}
	if caller.UserID == "" {
		return []Summary{}, nil
	}

	ac, err := s.contextFor(ctx, caller)
	if err != nil {
		return nil, err
	}
	filter.OwnerID = caller.UserID
	filter.AllShared = ac.IsAdmin
	if !ac.IsAdmin {
		filter.Scopes = ac.ScopesAllowing(access.ActionRead)
	}

	creds, err := s.creds.ListCredentials(ctx, filter)
	if err != nil {
		return nil, s.internal("list credentials", err)
	}

	out = make([]Summary, 0, len(creds))
	for i := range creds {
		out = append(out, s.summarize(&creds[i]))
	}
	return out, nil
}

func (s *Service) listFilter(f ListFilter) (store.CredentialFilter, error) {
	filter := store.CredentialFilter{
		Query:       strings.TrimSpace(f.Query),
		Type:        f.Type,
		Category:    f.Category,
		Environment: f.Environment,
		SortBy:      f.Sort,
		Offset:      f.Offset,
	}

	fields := map[string]string{}
	if f.Sort != "" {
		if _, ok := store.CredentialSortColumns[f.Sort]; !ok {
			keys := make([]string, 0, len(store.CredentialSortColumns))
			for k := range store.CredentialSortColumns {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fields["sort"] = "must be one of: " + strings.Join(keys, ", ")
		}
	}

	switch strings.ToLower(f.Order) {
	case "":
		filter.Descending = f.Sort == ""
	case "asc":
		filter.Descending = false
	case "desc":
		filter.Descending = true
	default:
		fields["order"] = "must be one of: asc, desc"
	}
	if filter.SortBy == "" {
		filter.SortBy = "updated_at"
	}

	if f.Type != nil && !f.Type.IsACredentialType() {
		fields["type"] = "is invalid"
	}
	if f.Offset < 0 {
		fields["offset"] = "must not be negative"
	}
	if len(fields) > 0 {
		return filter, &ValidationError{Fields: fields}
	}

	switch {
	case f.Limit <= 0:
		filter.Limit = s.listLimitDefault
	case f.Limit > s.listLimitMax:
		filter.Limit = s.listLimitMax
	default:
		filter.Limit = f.Limit
	}
	return filter, nil
}
