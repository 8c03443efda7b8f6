package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"gopkg.in/ini.v1"
)

const (
	SectionCluster = "CLUSTER"
	SectionIAMRole = "IAM_ROLE"
	SectionS3      = "S3"

	// EnvPrefix prefixes environment overrides, e.g. DWH_CLUSTER_DB_PASSWORD.
	EnvPrefix = "DWH"

	DefaultConfigFile = "dwh.cfg"
	DefaultSSLMode    = "require"
)

// ClusterConfig holds the connection parameters of the Redshift cluster.
type ClusterConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	// Schema is optional. When set, the run creates it if needed and uses it as search_path.
	Schema  string
	SSLMode string
}

// SourceConfig holds the staged data locations and the role Redshift assumes to read them.
type SourceConfig struct {
	LogData     string
	LogJSONPath string
	SongData    string
	IAMRoleARN  string
	Region      string
}

type Config struct {
	Cluster ClusterConfig
	Source  SourceConfig
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound.GenWithStackByArgs(path)
		}
		return nil, errors.Annotatef(err, "failed to read config file %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Debug("Read config data", zap.String("path", path))
	return cfg, nil
}

// LoadEnvFile loads a dotenv file into the process environment. Variables that
// are already set are left untouched.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Annotatef(err, "failed to load env file %s", path)
	}
	log.Debug("Loaded env file", zap.String("path", path))
	return nil
}

// Parse parses INI formatted configuration. Every key can be overridden by an
// environment variable named DWH_<SECTION>_<KEY>.
func Parse(data []byte) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, data)
	if err != nil {
		return nil, errors.Annotate(err, "failed to parse config")
	}
	r := &reader{file: file}

	cfg := &Config{
		Cluster: ClusterConfig{
			Host:     r.required(SectionCluster, "HOST"),
			Database: r.required(SectionCluster, "DB_NAME"),
			User:     r.required(SectionCluster, "DB_USER"),
			Password: r.required(SectionCluster, "DB_PASSWORD"),
			Port:     r.requiredInt(SectionCluster, "DB_PORT"),
			Schema:   r.optional(SectionCluster, "SCHEMA", ""),
			SSLMode:  r.optional(SectionCluster, "SSL_MODE", DefaultSSLMode),
		},
		Source: SourceConfig{
			IAMRoleARN:  r.required(SectionIAMRole, "ARN"),
			LogData:     r.required(SectionS3, "LOG_DATA"),
			LogJSONPath: r.required(SectionS3, "LOG_JSONPATH"),
			SongData:    r.required(SectionS3, "SONG_DATA"),
			Region:      r.required(SectionS3, "REGION"),
		},
	}
	if r.err != nil {
		return nil, r.err
	}
	return cfg, nil
}

// EnvKey returns the environment variable that overrides section.key.
func EnvKey(section, key string) string {
	return strings.ToUpper(EnvPrefix + "_" + section + "_" + key)
}

// reader keeps the first error so that Parse reads like a list of keys.
type reader struct {
	file *ini.File
	err  error
}

func (r *reader) lookup(section, key string) (string, bool) {
	if v, ok := os.LookupEnv(EnvKey(section, key)); ok {
		return strings.TrimSpace(v), true
	}
	sec, err := r.file.GetSection(strings.ToLower(section))
	if err != nil {
		return "", false
	}
	k := strings.ToLower(key)
	if !sec.HasKey(k) {
		return "", false
	}
	return strings.TrimSpace(sec.Key(k).String()), true
}

func (r *reader) required(section, key string) string {
	if r.err != nil {
		return ""
	}
	v, ok := r.lookup(section, key)
	if !ok || v == "" {
		r.err = ErrMissingKey.GenWithStackByArgs(section, key)
		return ""
	}
	return v
}

func (r *reader) requiredInt(section, key string) int {
	v := r.required(section, key)
	if r.err != nil {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		r.err = ErrInvalidValue.GenWithStackByArgs(section, key, v)
		return 0
	}
	return n
}

func (r *reader) optional(section, key, def string) string {
	if v, ok := r.lookup(section, key); ok && v != "" {
		return v
	}
	return def
}
