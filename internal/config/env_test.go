package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	payload string
	err     error
	stage   string
}

func (f *fakeFetcher) FetchSecret(_ context.Context, _, versionStage string) (string, error) {
	f.stage = versionStage
	return f.payload, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestApplySecret(t *testing.T) {
	t.Setenv("AWS_SECRETS_MANAGER_OVERWRITE", "")
	t.Setenv("AWS_SECRETS_MANAGER_VERSION_STAGE", "")
	t.Setenv("TRIPBOOKER_TEST_EXISTING", "kept")
	t.Setenv("TRIPBOOKER_TEST_NEW", "")
	t.Setenv("TRIPBOOKER_TEST_PORT", "")

	fetcher := &fakeFetcher{payload: `{"TRIPBOOKER_TEST_EXISTING":"replaced","TRIPBOOKER_TEST_NEW":"secret","TRIPBOOKER_TEST_PORT":8080}`}
	applied, err := ApplySecret(context.Background(), fetcher, "tripbooker/prod", discardLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, applied)
	assert.Equal(t, "AWSCURRENT", fetcher.stage)
	assert.Equal(t, "kept", os.Getenv("TRIPBOOKER_TEST_EXISTING"))
	assert.Equal(t, "secret", os.Getenv("TRIPBOOKER_TEST_NEW"))
	assert.Equal(t, "8080", os.Getenv("TRIPBOOKER_TEST_PORT"))
}

func TestApplySecret_Overwrite(t *testing.T) {
	t.Setenv("AWS_SECRETS_MANAGER_OVERWRITE", "TRUE")
	t.Setenv("AWS_SECRETS_MANAGER_VERSION_STAGE", "AWSPENDING")
	t.Setenv("TRIPBOOKER_TEST_EXISTING", "old")

	fetcher := &fakeFetcher{payload: `{"TRIPBOOKER_TEST_EXISTING":"new"}`}
	_, err := ApplySecret(context.Background(), fetcher, "id", discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "new", os.Getenv("TRIPBOOKER_TEST_EXISTING"))
	assert.Equal(t, "AWSPENDING", fetcher.stage)
}

func TestApplySecret_Errors(t *testing.T) {
	_, err := ApplySecret(context.Background(), &fakeFetcher{err: errors.New("access denied")}, "id", discardLogger())
	assert.ErrorContains(t, err, "access denied")

	_, err = ApplySecret(context.Background(), &fakeFetcher{payload: "not json"}, "id", discardLogger())
	assert.ErrorContains(t, err, "parsing secret")
}

func TestLoadEnv_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TRIPBOOKER_TEST_DOTENV=from-file\nTRIPBOOKER_TEST_SET=from-file\n"), 0o600))

	t.Setenv("ENV_FILE_PATH", path)
	t.Setenv("AWS_SECRETS_MANAGER_SECRET_ID", "")
	t.Setenv("AWS_SECRET_ID", "")
	t.Setenv("TRIPBOOKER_TEST_SET", "from-env")
	t.Setenv("TRIPBOOKER_TEST_DOTENV", "")
	os.Unsetenv("TRIPBOOKER_TEST_DOTENV")

	LoadEnv(context.Background(), discardLogger())

	assert.Equal(t, "from-file", os.Getenv("TRIPBOOKER_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("TRIPBOOKER_TEST_SET"), ".env must not override the environment")
}

func TestGetenv(t *testing.T) {
	t.Setenv("TRIPBOOKER_TEST_A", "")
	t.Setenv("TRIPBOOKER_TEST_B", "b")

	assert.Equal(t, "b", Getenv("x", "TRIPBOOKER_TEST_A", "TRIPBOOKER_TEST_B"))
	assert.Equal(t, "x", Getenv("x", "TRIPBOOKER_TEST_A"))
}
