package audit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/doodlesbykumbi/credvault/pkg/metrics"
	"github.com/doodlesbykumbi/credvault/pkg/model"
	"github.com/doodlesbykumbi/credvault/pkg/store"
)

// UserLookup resolves actor names.
type UserLookup interface {
	FetchUser(ctx context.Context, id string) (*model.User, error)
}

// Options tunes a Recorder. Zero values pick the defaults.
type Options struct {
	// Syslog mirrors every written entry when set.
	Syslog *Logger
	// Log receives write failures. Defaults to the logrus standard logger.
	Log logrus.FieldLogger
	// AuditPersonal applies when the audit_personal_credentials setting is unset.
	AuditPersonal bool
	// DefaultPageSize and MaxPageSize bound Query.
	DefaultPageSize int
	MaxPageSize     int
	// Clock returns the entry timestamp.
	Clock func() time.Time
}

// Recorder writes and reads the audit trail.
type Recorder struct {
	store    store.AuditStore
	users    UserLookup
	settings store.SettingsStore
	syslog   *Logger
	log      logrus.FieldLogger
	clock    func() time.Time

	auditPersonal   bool
	defaultPageSize int
	maxPageSize     int
}

// NewRecorder creates a Recorder. users and settings may be nil.
func NewRecorder(auditStore store.AuditStore, users UserLookup, settings store.SettingsStore, opts Options) *Recorder {
	r := &Recorder{
		store:           auditStore,
		users:           users,
		settings:        settings,
		syslog:          opts.Syslog,
		log:             opts.Log,
		clock:           opts.Clock,
		auditPersonal:   opts.AuditPersonal,
		defaultPageSize: opts.DefaultPageSize,
		maxPageSize:     opts.MaxPageSize,
	}
	if r.log == nil {
		r.log = logrus.StandardLogger()
	}
	r.log = r.log.WithField("component", "audit")
	if r.clock == nil {
		r.clock = time.Now
	}
	if r.defaultPageSize <= 0 {
		r.defaultPageSize = 25
	}
	if r.maxPageSize <= 0 {
		r.maxPageSize = 100
	}
	if r.defaultPageSize > r.maxPageSize {
		r.defaultPageSize = r.maxPageSize
	}
	return r
}

// Record appends e to the trail. It never fails: write errors are logged
// and counted. The write is detached from ctx cancellation so a caller that
// hangs up after a committed mutation still leaves a trail.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	action := e.Action.String()

	if e.Personal && !r.recordsPersonal(ctx) {
		metrics.RecordAuditWrite(action, "skipped")
		return
	}

	if e.ActorName == "" && e.ActorID != "" {
		e.ActorName = r.actorName(ctx, e.ActorID)
	}

	change, err := EncodeChange(e.Change)
	if err != nil {
		r.log.WithError(err).WithField("action", action).Error("failed to encode audit change")
		change = nil
	}

	row := &model.AuditLog{
		ID:             uuid.NewString(),
		Action:         action,
		ActorName:      e.ActorName,
		CredentialName: e.CredentialName,
		Change:         change,
		SourceAddress:  e.SourceAddress,
		CreatedAt:      r.clock().UTC(),
	}
	if e.ActorID != "" {
		row.ActorID = &e.ActorID
	}
	if e.CredentialID != "" {
		row.CredentialID = &e.CredentialID
	}

	if err := r.store.SaveAuditLog(ctx, row); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"action":     action,
			"actor":      e.ActorID,
			"credential": e.CredentialID,
		}).Error("failed to write audit entry")
		metrics.RecordAuditWrite(action, "failed")
		return
	}
	metrics.RecordAuditWrite(action, "written")

	if r.syslog != nil {
		r.syslog.Log(e)
	}
}

// recordsPersonal reads the audit_personal_credentials setting. A failed
// lookup records the entry.
func (r *Recorder) recordsPersonal(ctx context.Context) bool {
	if r.settings == nil {
		return r.auditPersonal
	}
	value, ok, err := r.settings.GetSetting(ctx, store.SettingAuditPersonalCredentials)
	if err != nil {
		r.log.WithError(err).Warn("failed to read audit_personal_credentials; recording entry")
		return true
	}
	if !ok {
		return r.auditPersonal
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		r.log.WithField("value", value).Warn("invalid audit_personal_credentials value; using default")
		return r.auditPersonal
	}
	return enabled
}

func (r *Recorder) actorName(ctx context.Context, id string) string {
	if r.users == nil {
		return id
	}
	user, err := r.users.FetchUser(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			r.log.WithError(err).WithField("actor", id).Warn("failed to resolve audit actor")
		}
		return id
	}
	return user.Name
}

// Filter selects audit rows. Page is 1-based.
type Filter struct {
	Actor     string
	Action    string
	Search    string
	From      *time.Time
	To        *time.Time
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// Row is a stored entry with its change decoded.
type Row struct {
	ID             string     `json:"id"`
	Action         string     `json:"action"`
	ActorID        *string    `json:"actorId"`
	ActorName      string     `json:"actorName"`
	CredentialID   *string    `json:"credentialId"`
	CredentialName string     `json:"credentialName"`
	Change         ChangeJSON `json:"change"`
	Summary        string     `json:"summary"`
	SourceAddress  string     `json:"sourceAddress"`
	Timestamp      time.Time  `json:"timestamp"`
}

// Page is one page of Query results.
type Page struct {
	Rows       []Row `json:"rows"`
	TotalCount int64 `json:"totalCount"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

// Query returns one page of the trail. Sorting defaults to newest first.
func (r *Recorder) Query(ctx context.Context, f Filter) (Page, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 {
		size = r.defaultPageSize
	}
	if size > r.maxPageSize {
		size = r.maxPageSize
	}

	sortBy := f.SortBy
	if _, ok := store.AuditSortColumns[sortBy]; !ok {
		sortBy = "timestamp"
	}

	rows, total, err := r.store.QueryAuditLogs(ctx, store.AuditQuery{
		ActorName:  strings.TrimSpace(f.Actor),
		Action:     strings.TrimSpace(f.Action),
		Search:     f.Search,
		From:       f.From,
		To:         f.To,
		SortBy:     sortBy,
		Descending: !strings.EqualFold(f.SortOrder, "asc"),
		Limit:      size,
		Offset:     (page - 1) * size,
	})
	if err != nil {
		return Page{}, err
	}

	out := Page{
		Rows:       make([]Row, 0, len(rows)),
		TotalCount: total,
		Page:       page,
		PageSize:   size,
		TotalPages: int(math.Ceil(float64(total) / float64(size))),
	}
	for _, row := range rows {
		change := DecodeChange(row.Change)
		out.Rows = append(out.Rows, Row{
			ID:             row.ID,
			Action:         row.Action,
			ActorID:        row.ActorID,
			ActorName:      row.ActorName,
			CredentialID:   row.CredentialID,
			CredentialName: row.CredentialName,
			Change:         ChangeJSON{Change: change},
			Summary:        Render(change),
			SourceAddress:  row.SourceAddress,
			Timestamp:      row.CreatedAt,
		})
	}
	return out, nil
}
