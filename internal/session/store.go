// Package session hands uploads over between the Claims and Finance
// departments. Each department uploads its weekly report independently; the
// store keeps the latest upload per role for the current week so that
// whoever runs the reconciliation can load both.
//
// Layout on the backing filesystem:
//
//	<dir>/session_<week>.json           metadata for both roles
//	<dir>/<week>/<role>-<upload id><ext> uploaded file bytes
package session

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Role is the department that made an upload
type Role string

const (
	RoleClaims  Role = "claims"
	RoleFinance Role = "finance"
)

// ParseRole parses a department name
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleClaims:
		return RoleClaims, nil
	case RoleFinance:
		return RoleFinance, nil
	default:
		return "", errors.ValidationError(errors.CodeInvalidData, "role", s,
			fmt.Errorf("role must be %q or %q", RoleClaims, RoleFinance))
	}
}

// Title returns the department name for display, e.g. "Claims"
func (r Role) Title() string {
	s := string(r)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// WeekID returns the session key for t: the year and the Sunday-based week
// number, where days before the first Sunday of the year are week 00
func WeekID(t time.Time) string {
	week := (t.YearDay() - 1 + 7 - int(t.Weekday())) / 7
	return fmt.Sprintf("%d-W%02d", t.Year(), week)
}

// Upload describes a file being handed over
type Upload struct {
	FileName       string
	Sheet          string
	ScheduleColumn string
	AmountColumn   string
}

// UploadRecord is the stored metadata of one upload
type UploadRecord struct {
	ID             uuid.UUID `json:"id"`
	Role           Role      `json:"role"`
	FileName       string    `json:"file_name"`
	Sheet          string    `json:"sheet_name"`
	ScheduleColumn string    `json:"schedule_col"`
	AmountColumn   string    `json:"amount_col"`
	UploadedAt     time.Time `json:"timestamp"`
	Blob           string    `json:"blob"`
	Size           int       `json:"size"`
}

// Session is one week's uploads. A role without an upload is nil.
type Session struct {
	Week    string        `json:"week"`
	Claims  *UploadRecord `json:"claims"`
	Finance *UploadRecord `json:"finance"`
}

// Upload returns the record for role, or nil
func (s *Session) Upload(role Role) *UploadRecord {
	switch role {
	case RoleClaims:
		return s.Claims
	case RoleFinance:
		return s.Finance
	default:
		return nil
	}
}

// Complete reports whether both departments have uploaded
func (s *Session) Complete() bool {
	return s.Claims != nil && s.Finance != nil
}

func (s *Session) set(record *UploadRecord) {
	switch record.Role {
	case RoleClaims:
		s.Claims = record
	case RoleFinance:
		s.Finance = record
	}
}

// SaveResult is returned by Store.Save
type SaveResult struct {
	Week     string
	Record   *UploadRecord
	Complete bool
}

// Store persists sessions on an afero filesystem
type Store struct {
	fs     afero.Fs
	dir    string
	now    func() time.Time
	mu     sync.Mutex
	logger logger.Logger
}

// NewStore creates a store rooted at dir, creating it when missing
func NewStore(fs afero.Fs, dir string) (*Store, error) {
	if dir == "" {
		dir = "sessions"
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.StorageError(errors.CodeStorageIO, dir, err)
	}
	return &Store{
		fs:     fs,
		dir:    dir,
		now:    time.Now,
		logger: logger.WithComponent("session").WithField("dir", dir),
	}, nil
}

// WithClock replaces the time source used for week ids and timestamps
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// CurrentWeek returns the week id for the store clock
func (s *Store) CurrentWeek() string {
	return WeekID(s.now())
}

func (s *Store) sessionPath(week string) string {
	return filepath.Join(s.dir, "session_"+week+".json")
}

// Save stores data as role's upload for the current week, replacing any
// earlier upload by the same role
func (s *Store) Save(role Role, upload Upload, data []byte) (*SaveResult, error) {
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	week := WeekID(now)
	sess, err := s.read(week)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	blob := filepath.Join(s.dir, week, fmt.Sprintf("%s-%s%s", role, id, filepath.Ext(upload.FileName)))
	if err := s.fs.MkdirAll(filepath.Dir(blob), 0o755); err != nil {
		return nil, errors.StorageError(errors.CodeStorageIO, blob, err)
	}
	if err := afero.WriteFile(s.fs, blob, data, 0o644); err != nil {
		return nil, errors.StorageError(errors.CodeStorageIO, blob, err)
	}

	previous := sess.Upload(role)
	record := &UploadRecord{
		ID:             id,
		Role:           role,
		FileName:       upload.FileName,
		Sheet:          upload.Sheet,
		ScheduleColumn: upload.ScheduleColumn,
		AmountColumn:   upload.AmountColumn,
		UploadedAt:     now,
		Blob:           blob,
		Size:           len(data),
	}
	sess.set(record)

	if err := s.write(sess); err != nil {
		return nil, err
	}
	if previous != nil && previous.Blob != "" {
		if err := s.fs.Remove(previous.Blob); err != nil {
			s.logger.WithError(err).WithField("blob", previous.Blob).Warn("Failed to remove replaced upload")
		}
	}

	s.logger.WithFields(logger.Fields{
		"week":     week,
		"role":     string(role),
		"file":     upload.FileName,
		"upload":   id.String(),
		"complete": sess.Complete(),
	}).Info("Saved upload")

	return &SaveResult{Week: week, Record: record, Complete: sess.Complete()}, nil
}

// Get returns the session for week. A week nobody uploaded to yields an empty
// session.
func (s *Store) Get(week string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(week)
}

// Current returns the session for the current week
func (s *Store) Current() (*Session, error) {
	return s.Get(s.CurrentWeek())
}

// List returns the week ids with stored sessions, newest first
func (s *Store) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageIO, s.dir, err)
	}

	var weeks []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "session_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		weeks = append(weeks, strings.TrimSuffix(strings.TrimPrefix(name, "session_"), ".json"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(weeks)))
	return weeks, nil
}

// Load returns role's upload for week and the stored file bytes
func (s *Store) Load(week string, role Role) (*UploadRecord, []byte, error) {
	sess, err := s.Get(week)
	if err != nil {
		return nil, nil, err
	}
	record := sess.Upload(role)
	if record == nil {
		return nil, nil, errors.StorageError(errors.CodeSessionNotFound, week, nil).
			WithContext("role", string(role))
	}

	data, err := afero.ReadFile(s.fs, record.Blob)
	if err != nil {
		return nil, nil, errors.StorageError(errors.CodeStorageIO, record.Blob, err)
	}
	return record, data, nil
}

func (s *Store) read(week string) (*Session, error) {
	p := s.sessionPath(week)
	exists, err := afero.Exists(s.fs, p)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageIO, p, err)
	}
	if !exists {
		return &Session{Week: week}, nil
	}

	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageIO, p, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, errors.StorageError(errors.CodeStorageIO, p, err).
			WithSuggestion("delete the corrupted session file and upload again")
	}
	sess.Week = week
	return &sess, nil
}

func (s *Store) write(sess *Session) error {
	p := s.sessionPath(sess.Week)
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return errors.InternalError("encode session", err)
	}
	if err := afero.WriteFile(s.fs, p, data, 0o644); err != nil {
		return errors.StorageError(errors.CodeStorageIO, p, err)
	}
	return nil
}
