package columns

import (
	"bufio"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/bwilder0/folktexts/internal/qa"
)

// NotFound is returned by code-table lookups for codes that are absent
// from the parsed table.
const NotFound = "N/A"

// codeLinePattern matches one PUMS code-table record:
// `<digits><whitespace>.<description>`.
var codeLinePattern = regexp.MustCompile(`^(\d+)\s+[.](.+)$`)

// Catalog caches parsed code tables for the lifetime of the process, keyed
// by normalized file path. A file is read from disk at most once; the first
// parse wins, including its post-processing transform. Safe for concurrent
// use.
type Catalog struct {
	mu     sync.Mutex
	fsys   fs.FS
	tables map[string]map[int]string
	reads  int
	logger *log.Logger
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithCatalogFS makes the catalog read files from fsys instead of the OS
// filesystem.
func WithCatalogFS(fsys fs.FS) CatalogOption {
	return func(c *Catalog) { c.fsys = fsys }
}

// WithCatalogLogger sets the logger for parse and lookup diagnostics.
func WithCatalogLogger(l *log.Logger) CatalogOption {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCatalog constructs an empty code-table catalog.
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		tables: make(map[string]map[int]string),
		logger: log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Reads reports how many files have been read from the underlying
// filesystem so far.
func (c *Catalog) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Lookup returns the description for code in the table at path, parsing
// and caching the file on first use. Post-processing (if any) is applied
// once, at parse time. Missing codes resolve to NotFound with a logged
// warning; lookups never fail.
func (c *Catalog) Lookup(path string, code int, postprocess func(string) string) string {
	table := c.table(path, postprocess)

	desc, ok := table[code]
	if !ok {
		c.logger.Printf("columns: code %d not found in %q", code, path)
		return NotFound
	}
	return desc
}

// LookupFunc binds a code-table file into a value-map procedure usable as
// a ColumnToText source. Raw values that do not canonicalize to an integer
// code resolve to NotFound.
func (c *Catalog) LookupFunc(path string, postprocess func(string) string) func(any) string {
	return func(value any) string {
		code, ok := intCode(value)
		if !ok {
			c.logger.Printf("columns: non-integer code %v for %q", value, path)
			return NotFound
		}
		return c.Lookup(path, code, postprocess)
	}
}

func (c *Catalog) table(path string, postprocess func(string) string) map[int]string {
	key := filepath.ToSlash(filepath.Clean(path))

	c.mu.Lock()
	defer c.mu.Unlock()

	if table, ok := c.tables[key]; ok {
		return table
	}

	table := c.parseLocked(path, postprocess)
	c.tables[key] = table
	return table
}

// parseLocked reads and parses one code-table file. Malformed files
// degrade to partial (or empty) tables; there is no fatal error path.
func (c *Catalog) parseLocked(path string, postprocess func(string) string) map[int]string {
	var (
		f   io.ReadCloser
		err error
	)
	if c.fsys != nil {
		f, err = c.fsys.Open(filepath.ToSlash(path))
	} else {
		f, err = os.Open(path)
	}
	if err != nil {
		c.logger.Printf("columns: open code table %q: %v", path, err)
		return map[int]string{}
	}
	defer f.Close()
	c.reads++

	table := make(map[int]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		m := codeLinePattern.FindStringSubmatch(line)
		if m == nil {
			c.logger.Printf("columns: could not parse code table line %q in %q", line, path)
			continue
		}

		code, ok := intCode(m[1])
		if !ok {
			c.logger.Printf("columns: could not parse code %q in %q", m[1], path)
			continue
		}

		desc := strings.TrimSpace(m[2])
		if postprocess != nil {
			desc = postprocess(desc)
		}
		table[code] = desc
	}
	if err := sc.Err(); err != nil {
		c.logger.Printf("columns: read code table %q: %v", path, err)
	}

	return table
}

func intCode(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
		return 0, false
	default:
		key := qa.KeyFor(value)
		n := 0
		if key == "" {
			return 0, false
		}
		for i := 0; i < len(key); i++ {
			if key[i] < '0' || key[i] > '9' {
				return 0, false
			}
			n = n*10 + int(key[i]-'0')
		}
		return n, true
	}
}
