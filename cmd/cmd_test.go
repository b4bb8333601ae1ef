package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/go-authgate/consentgate/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "consentgate.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", path)
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestClientCreateAndDelete(t *testing.T) {
	path := setupDB(t)

	out, err := run(t, "client", "create",
		"--name", "Mirim Board",
		"--domain", "board.example.com",
		"--scope", "email,nickname",
		"--redirect-uri", "https://board.example.com/cb",
		"--allowed-user-type", "student",
	)
	require.NoError(t, err, out)

	m := regexp.MustCompile(`client_id:\s+(\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2)
	clientID := m[1]
	assert.Regexp(t, `client_secret:\s+\S+`, out)

	db, err := store.New(context.Background(), "sqlite", path)
	require.NoError(t, err)
	client, err := db.GetClient(context.Background(), clientID)
	require.NoError(t, err)
	assert.Equal(t, "Mirim Board", client.ServiceName)
	assert.EqualValues(t, "student", client.AllowedUserType)
	require.NoError(t, db.Close())

	out, err = run(t, "client", "delete", clientID)
	require.NoError(t, err, out)
	assert.Contains(t, out, "deleted")

	_, err = run(t, "client", "delete", clientID)
	assert.Error(t, err)
}

func TestClientCreate_Invalid(t *testing.T) {
	setupDB(t)

	_, err := run(t, "client", "create",
		"--name", "x", "--domain", "x.example.com",
		"--scope", "password", "--redirect-uri", "https://x.example.com/cb")
	assert.Error(t, err)

	_, err = run(t, "client", "create", "--name", "x")
	assert.Error(t, err, "required flags are missing")
}

func TestUserCreate(t *testing.T) {
	path := setupDB(t)

	out, err := run(t, "user", "create",
		"--email", "t1@e-mirim.hs.kr",
		"--nickname", "t1",
		"--password", "correct-horse",
		"--role", "teacher",
		"--generation", "3",
	)
	require.NoError(t, err, out)
	assert.Contains(t, out, "user t1 created")

	db, err := store.New(context.Background(), "sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	u, err := db.GetUserByNickname(context.Background(), "t1")
	require.NoError(t, err)
	assert.EqualValues(t, "teacher", u.Role)
	require.NotNil(t, u.Generation)
	assert.Equal(t, 3, *u.Generation)
	assert.Nil(t, u.Admission)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)

	_, err = run(t, "user", "create",
		"--email", "x@e-mirim.hs.kr", "--nickname", "x", "--password", "short")
	assert.Error(t, err)

	_, err = run(t, "user", "create",
		"--email", "y@e-mirim.hs.kr", "--nickname", "y", "--password", "long-enough", "--role", "admin")
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	setupDB(t)
	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "up to date")
}
