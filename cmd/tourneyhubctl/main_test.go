package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/tourneyhub/tourneyhub/client-core/internal/activity"
	"github.com/tourneyhub/tourneyhub/client-core/internal/archive"
	"github.com/tourneyhub/tourneyhub/client-core/internal/models"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg = nil
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func useMemoryActivity(t *testing.T, recs ...activity.Record) *activity.MemoryRepository {
	t.Helper()
	repo := activity.NewMemoryRepository(recs...)
	prev := activityRepoFactory
	activityRepoFactory = func(*cobra.Command) (activity.Repository, func(), error) {
		return repo, func() {}, nil
	}
	t.Cleanup(func() { activityRepoFactory = prev })
	return repo
}

func TestTokenIssueAndVerify(t *testing.T) {
	t.Setenv("IDENTITY_HMAC_SECRET", "cli-secret")

	out, err := run(t, "token", "issue", "--sub", "u1", "--email", "u1@example.com", "--ttl", "10m")
	require.NoError(t, err)
	tok := strings.TrimSpace(out)
	require.Equal(t, 2, strings.Count(tok, "."))

	out, err = run(t, "-o", "json", "token", "verify", tok)
	require.NoError(t, err)
	var id models.Identity
	require.NoError(t, json.Unmarshal([]byte(out), &id))
	require.Equal(t, "u1", id.ID)
	require.Equal(t, "u1@example.com", id.Email)
}

func TestTokenIssueRequiresSubAndSecret(t *testing.T) {
	t.Setenv("IDENTITY_HMAC_SECRET", "cli-secret")
	_, err := run(t, "token", "issue")
	require.Error(t, err)

	t.Setenv("IDENTITY_HMAC_SECRET", "")
	_, err = run(t, "token", "issue", "--sub", "u1")
	require.Error(t, err)
}

func TestTokenVerifyRejectsForeignSignature(t *testing.T) {
	t.Setenv("IDENTITY_HMAC_SECRET", "one")
	out, err := run(t, "token", "issue", "--sub", "u1")
	require.NoError(t, err)

	t.Setenv("IDENTITY_HMAC_SECRET", "two")
	_, err = run(t, "token", "verify", strings.TrimSpace(out))
	require.Error(t, err)
}

func TestActivityRecordAndList(t *testing.T) {
	repo := useMemoryActivity(t)

	_, err := run(t, "activity", "record", "--user", "u1", "--email", "u1@example.com", "--type", "signup")
	require.NoError(t, err)
	_, err = run(t, "activity", "record", "--user", "u2", "--email", "u2@example.com", "--type", "login")
	require.NoError(t, err)
	_, err = run(t, "activity", "record", "--user", "u3", "--type", "bogus")
	require.Error(t, err)

	recs, err := repo.Scan(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	out, err := run(t, "activity", "list", "--type", "login")
	require.NoError(t, err)
	require.Contains(t, out, "u2@example.com")
	require.NotContains(t, out, "u1@example.com")
}

func TestActivityStatsFormats(t *testing.T) {
	ts := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	useMemoryActivity(t,
		activity.Record{UserID: "u1", ActivityType: activity.TypeLogin, Timestamp: &ts},
		activity.Record{UserID: "u2", ActivityType: activity.TypeLogout, CreatedAt: "2024-05-03T10:00:00.000Z"},
	)

	out, err := run(t, "activity", "stats", "--start", "2024-05-01")
	require.NoError(t, err)
	require.Contains(t, out, "2024-05-02")
	require.Contains(t, out, "UNIQUE USERS")

	out, err = run(t, "-o", "json", "activity", "stats", "--end", "2024-05-03")
	require.NoError(t, err)
	var stats activity.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Equal(t, 1, stats.TotalLogins)
	require.Equal(t, 0, stats.TotalLogouts)
	require.Equal(t, 1, stats.UniqueUsers)

	out, err = run(t, "-o", "yaml", "activity", "stats")
	require.NoError(t, err)
	var generic map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &generic))
	require.Contains(t, generic, "totallogins")

	_, err = run(t, "activity", "stats", "--start", "May 1")
	require.Error(t, err)

	_, err = run(t, "-o", "xml", "activity", "stats")
	require.Error(t, err)
}

func TestProfileResolveRequiresMongo(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	_, err := run(t, "profile", "resolve", "u1")
	require.ErrorContains(t, err, "MONGODB_URI")
}

// in-memory archive store
type memArchive struct {
	keys []string
}

func (m *memArchive) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	m.keys = append(m.keys, key)
	return nil
}

func TestActivityExport(t *testing.T) {
	ts := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	useMemoryActivity(t, activity.Record{UserID: "u1", Email: "u1@example.com", ActivityType: activity.TypeLogin, Timestamp: &ts})

	store := &memArchive{}
	prev := archiveStoreFactory
	archiveStoreFactory = func(*cobra.Command) (archive.ObjectStore, error) { return store, nil }
	t.Cleanup(func() { archiveStoreFactory = prev })

	out, err := run(t, "activity", "export", "--start", "2024-05-01", "--end", "2024-06-01")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(strings.TrimSpace(out), "stats/2024-05-01_2024-06-01/"))

	out, err = run(t, "activity", "export", "--type", "login")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(strings.TrimSpace(out), "records/login/"))
	require.Len(t, store.keys, 2)
}

func TestActivityExportWithoutEndpoint(t *testing.T) {
	useMemoryActivity(t)
	t.Setenv("ARCHIVE_ENDPOINT", "")
	_, err := run(t, "activity", "export")
	require.Error(t, err)
}
