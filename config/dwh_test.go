package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	cfg "github.com/sparkify/dwhetl/config"
	"github.com/stretchr/testify/require"
)

const validConfig = `
[CLUSTER]
HOST=dwhcluster.abc123.us-west-2.redshift.amazonaws.com
DB_NAME=dwh
DB_USER=dwhuser
DB_PASSWORD=Passw0rd
DB_PORT=5439

[IAM_ROLE]
ARN=arn:aws:iam::123456789012:role/dwhRole

[S3]
LOG_DATA=s3://udacity-dend/log_data
LOG_JSONPATH=s3://udacity-dend/log_json_path.json
SONG_DATA=s3://udacity-dend/song_data
REGION=us-west-2
`

func TestParseValidConfig(t *testing.T) {
	c, err := cfg.Parse([]byte(validConfig))
	require.NoError(t, err)

	require.Equal(t, cfg.ClusterConfig{
		Host:     "dwhcluster.abc123.us-west-2.redshift.amazonaws.com",
		Port:     5439,
		Database: "dwh",
		User:     "dwhuser",
		Password: "Passw0rd",
		SSLMode:  cfg.DefaultSSLMode,
	}, c.Cluster)
	require.Equal(t, cfg.SourceConfig{
		LogData:     "s3://udacity-dend/log_data",
		LogJSONPath: "s3://udacity-dend/log_json_path.json",
		SongData:    "s3://udacity-dend/song_data",
		IAMRoleARN:  "arn:aws:iam::123456789012:role/dwhRole",
		Region:      "us-west-2",
	}, c.Source)
}

func TestParseKeysAreCaseInsensitive(t *testing.T) {
	lower := strings.Replace(validConfig, "DB_NAME=dwh", "db_name=dwh", 1)
	c, err := cfg.Parse([]byte(lower))
	require.NoError(t, err)
	require.Equal(t, "dwh", c.Cluster.Database)
}

func TestParseMissingKey(t *testing.T) {
	for _, key := range []string{"HOST", "DB_PASSWORD", "ARN", "LOG_DATA", "LOG_JSONPATH", "SONG_DATA", "REGION"} {
		var kept []string
		for _, line := range strings.Split(validConfig, "\n") {
			if !strings.HasPrefix(line, key+"=") {
				kept = append(kept, line)
			}
		}
		_, err := cfg.Parse([]byte(strings.Join(kept, "\n")))
		require.Error(t, err, key)
		require.True(t, cfg.ErrMissingKey.Equal(err), "%s: %v", key, err)
		require.Contains(t, err.Error(), key)
	}
}

func TestParseEmptyValueIsMissing(t *testing.T) {
	data := strings.Replace(validConfig, "REGION=us-west-2", "REGION=", 1)
	_, err := cfg.Parse([]byte(data))
	require.True(t, cfg.ErrMissingKey.Equal(err))
}

func TestParseInvalidPort(t *testing.T) {
	data := strings.Replace(validConfig, "DB_PORT=5439", "DB_PORT=redshift", 1)
	_, err := cfg.Parse([]byte(data))
	require.True(t, cfg.ErrInvalidValue.Equal(err))
}

func TestParseOptionalKeys(t *testing.T) {
	data := strings.Replace(validConfig, "DB_PORT=5439", "DB_PORT=5439\nSCHEMA=sparkify\nSSL_MODE=disable", 1)
	c, err := cfg.Parse([]byte(data))
	require.NoError(t, err)
	require.Equal(t, "sparkify", c.Cluster.Schema)
	require.Equal(t, "disable", c.Cluster.SSLMode)
}

func TestEnvOverride(t *testing.T) {
	require.Equal(t, "DWH_CLUSTER_DB_PASSWORD", cfg.EnvKey(cfg.SectionCluster, "DB_PASSWORD"))

	t.Setenv("DWH_CLUSTER_DB_PASSWORD", "fromenv")
	t.Setenv("DWH_S3_REGION", "eu-west-1")
	c, err := cfg.Parse([]byte(validConfig))
	require.NoError(t, err)
	require.Equal(t, "fromenv", c.Cluster.Password)
	require.Equal(t, "eu-west-1", c.Source.Region)

	// the override also satisfies a key missing from the file
	data := strings.Replace(validConfig, "DB_PASSWORD=Passw0rd", "", 1)
	c, err = cfg.Parse([]byte(data))
	require.NoError(t, err)
	require.Equal(t, "fromenv", c.Cluster.Password)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dwh.cfg")
	require.NoError(t, os.WriteFile(path, []byte(validConfig), 0o600))

	c, err := cfg.Load(path)
	require.NoError(t, err)
	require.Equal(t, "dwh", c.Cluster.Database)

	_, err = cfg.Load(filepath.Join(dir, "missing.cfg"))
	require.True(t, cfg.ErrConfigNotFound.Equal(err))
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, cfg.LoadEnvFile(""))

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DWH_CLUSTER_DB_USER=envuser\n"), 0o600))
	t.Setenv("DWH_CLUSTER_DB_USER", "")
	os.Unsetenv("DWH_CLUSTER_DB_USER")

	require.NoError(t, cfg.LoadEnvFile(path))
	c, err := cfg.Parse([]byte(validConfig))
	require.NoError(t, err)
	require.Equal(t, "envuser", c.Cluster.User)

	require.Error(t, cfg.LoadEnvFile(filepath.Join(dir, "nope.env")))
}
