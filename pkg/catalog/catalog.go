// Package catalog holds every statement of a full refresh, keyed by logical
// name and grouped in the order they run.
package catalog

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/pingcap/errors"
	"github.com/sparkify/dwhetl/config"
	"github.com/sparkify/dwhetl/pkg/utils"
	"gitlab.com/tymonx/go-formatter/formatter"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Kind string

const (
	KindDrop   Kind = "drop"
	KindCreate Kind = "create"
	KindLoad   Kind = "load"
	KindInsert Kind = "insert"
)

// Kinds lists the statement kinds in execution order.
var Kinds = []Kind{KindDrop, KindCreate, KindLoad, KindInsert}

// Arguments a template may require from the source configuration.
const (
	ArgLogData     = "logData"
	ArgLogJSONPath = "logJSONPath"
	ArgSongData    = "songData"
	ArgIAMRole     = "iamRole"
	ArgRegion      = "region"
)

// argKeys maps each argument to the configuration key it is read from.
var argKeys = map[string][2]string{
	ArgLogData:     {config.SectionS3, "LOG_DATA"},
	ArgLogJSONPath: {config.SectionS3, "LOG_JSONPATH"},
	ArgSongData:    {config.SectionS3, "SONG_DATA"},
	ArgIAMRole:     {config.SectionIAMRole, "ARN"},
	ArgRegion:      {config.SectionS3, "REGION"},
}

// Statement is one fully rendered SQL statement.
type Statement struct {
	Name  string `yaml:"name"`
	Kind  Kind   `yaml:"kind"`
	Table string `yaml:"table"`
	Text  string `yaml:"query"`
}

type template struct {
	name  string
	kind  Kind
	table string
	// args are the configuration arguments the text refers to. Table names are
	// always available.
	args []string
	text string
}

type Catalog struct {
	Drop   []Statement
	Create []Statement
	Load   []Statement
	Insert []Statement

	byName map[string]Statement
}

// Phase is one list of the catalog.
type Phase struct {
	Kind       Kind        `yaml:"kind"`
	Statements []Statement `yaml:"statements"`
}

// New renders every template with the given source configuration. Missing or
// malformed values are reported before anything is rendered.
func New(src *config.SourceConfig) (*Catalog, error) {
	args, err := sourceArgs(src)
	if err != nil {
		return nil, errors.Trace(err)
	}

	c := &Catalog{byName: make(map[string]Statement)}
	for _, group := range []struct {
		templates []template
		into      *[]Statement
	}{
		{dropTemplates, &c.Drop},
		{createTemplates, &c.Create},
		{loadTemplates, &c.Load},
		{insertTemplates, &c.Insert},
	} {
		stmts := make([]Statement, 0, len(group.templates))
		for _, tmpl := range group.templates {
			stmt, err := tmpl.render(args)
			if err != nil {
				return nil, errors.Trace(err)
			}
			if _, dup := c.byName[stmt.Name]; dup {
				return nil, errors.Errorf("duplicate statement name %s", stmt.Name)
			}
			c.byName[stmt.Name] = stmt
			stmts = append(stmts, stmt)
		}
		*group.into = stmts
	}
	return c, nil
}

// Lookup returns the statement registered under name.
func (c *Catalog) Lookup(name string) (Statement, bool) {
	stmt, ok := c.byName[name]
	return stmt, ok
}

// Names returns every statement name, sorted.
func (c *Catalog) Names() []string {
	names := maps.Keys(c.byName)
	slices.Sort(names)
	return names
}

// Phases returns the four lists in execution order.
func (c *Catalog) Phases() []Phase {
	return []Phase{
		{Kind: KindDrop, Statements: c.Drop},
		{Kind: KindCreate, Statements: c.Create},
		{Kind: KindLoad, Statements: c.Load},
		{Kind: KindInsert, Statements: c.Insert},
	}
}

// Statements returns the list of the given kind.
func (c *Catalog) Statements(kind Kind) []Statement {
	for _, p := range c.Phases() {
		if p.Kind == kind {
			return p.Statements
		}
	}
	return nil
}

func (t template) render(args map[string]string) (Statement, error) {
	named := formatter.Named{
		"tableName":           t.table,
		"nextSongPage":        utils.QuoteLiteral(NextSongPage),
		"stagingEventColumns": strings.Join(stagingEventColumns, ", "),
	}
	for k, v := range tableNames {
		named[k] = v
	}
	for _, arg := range t.args {
		v, ok := args[arg]
		if !ok {
			return Statement{}, errors.Errorf("statement %s requires unknown argument %s", t.name, arg)
		}
		if v == "" {
			key := argKeys[arg]
			return Statement{}, config.ErrMissingKey.GenWithStackByArgs(key[0], key[1])
		}
		named[arg] = utils.QuoteLiteral(v)
	}
	text, err := formatter.Format(t.text, named)
	if err != nil {
		return Statement{}, errors.Annotatef(err, "failed to render statement %s", t.name)
	}
	return Statement{Name: t.name, Kind: t.kind, Table: t.table, Text: text}, nil
}

func sourceArgs(src *config.SourceConfig) (map[string]string, error) {
	if src == nil {
		return nil, errors.New("source config is nil")
	}
	args := map[string]string{
		ArgLogData:     strings.TrimSpace(src.LogData),
		ArgLogJSONPath: strings.TrimSpace(src.LogJSONPath),
		ArgSongData:    strings.TrimSpace(src.SongData),
		ArgIAMRole:     strings.TrimSpace(src.IAMRoleARN),
		ArgRegion:      strings.TrimSpace(src.Region),
	}
	keys := maps.Keys(args)
	slices.Sort(keys)
	for _, arg := range keys {
		v := args[arg]
		key := argKeys[arg]
		if v == "" {
			return nil, config.ErrMissingKey.GenWithStackByArgs(key[0], key[1])
		}
		if strings.IndexFunc(v, unicode.IsControl) >= 0 {
			return nil, config.ErrInvalidValue.GenWithStackByArgs(key[0], key[1], "contains control characters")
		}
		switch arg {
		case ArgLogData, ArgLogJSONPath, ArgSongData:
			if err := checkS3URI(v); err != nil {
				return nil, config.ErrInvalidValue.GenWithStackByArgs(key[0], key[1], err.Error())
			}
		case ArgIAMRole:
			if !strings.HasPrefix(v, "arn:") {
				return nil, config.ErrInvalidValue.GenWithStackByArgs(key[0], key[1], "not an ARN")
			}
		}
	}
	return args, nil
}

func checkS3URI(s string) error {
	uri, err := url.Parse(s)
	if err != nil {
		return errors.Trace(err)
	}
	if uri.Scheme != "s3" {
		return errors.New("not a s3 uri")
	}
	if uri.Host == "" {
		return errors.New("missing bucket")
	}
	return nil
}
