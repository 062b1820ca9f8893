package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

// Schema identifies the embedded migration set. Version is the highest
// migration number and Checksum covers the name and body of every up file,
// so the gate notices an edited migration even when the number is unchanged.
type Schema struct {
	Version  uint
	Checksum string
}

func (s Schema) VersionString() string {
	return strconv.FormatUint(uint64(s.Version), 10)
}

// EmbeddedSchema describes the migrations compiled into this binary.
func EmbeddedSchema() (Schema, error) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	if err != nil {
		return Schema{}, fmt.Errorf("read embedded migrations: %w", err)
	}

	var ups []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		ups = append(ups, entry.Name())
	}
	if len(ups) == 0 {
		return Schema{}, fmt.Errorf("no up migrations embedded under %s", migrationsDir)
	}
	sort.Strings(ups)

	var schema Schema
	sum := sha256.New()
	for _, name := range ups {
		version, ok := migrationNumber(name)
		if !ok {
			return Schema{}, fmt.Errorf("migration %s has no numeric prefix", name)
		}
		if version > schema.Version {
			schema.Version = version
		}

		body, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/"+name)
		if err != nil {
			return Schema{}, fmt.Errorf("read migration %s: %w", name, err)
		}
		fmt.Fprintf(sum, "%s:%d\n", name, len(body))
		sum.Write(body)
	}
	schema.Checksum = hex.EncodeToString(sum.Sum(nil))
	return schema, nil
}

// migrationNumber reads the leading number of "000003_name.up.sql".
func migrationNumber(name string) (uint, bool) {
	prefix, _, found := strings.Cut(name, "_")
	if !found || prefix == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(prefix, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}
