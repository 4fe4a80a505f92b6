package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/malbeclabs/wlfixtures/config"
	"github.com/malbeclabs/wlfixtures/internal/fixture"
	"github.com/malbeclabs/wlfixtures/internal/output"
	"github.com/malbeclabs/wlfixtures/internal/registry"
	"github.com/malbeclabs/wlfixtures/internal/tokenprog"
	"github.com/spf13/cobra"
)

type InspectCmd struct{}

func NewInspectCmd() *InspectCmd {
	return &InspectCmd{}
}

func (c *InspectCmd) Command() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "inspect [fixture.bin...]",
		Short: "Decode fixture files and print their fields",
		Long: `Decode fixture files and print their fields.

Without arguments every *.bin file in --dir is decoded. The account kind of each file is taken from
the manifest in its directory when there is one, and detected from the data otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd.OutOrStdout(), dir, args)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", config.DefaultFixturesDir, "fixtures directory")

	return cmd
}

func inspect(w io.Writer, dir string, files []string) error {
	if len(files) == 0 {
		matches, err := filepath.Glob(filepath.Join(dir, "*.bin"))
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return fmt.Errorf("no fixtures found in %s", dir)
		}
		slices.Sort(matches)
		files = matches
	}

	manifests := map[string]map[string]registry.ManifestEntry{}
	table := newTable(w, []string{"File", "Type", "Field", "Value"})
	var failed []error
	for _, path := range files {
		fixtureDir := filepath.Dir(path)
		if _, ok := manifests[fixtureDir]; !ok {
			entries, err := manifestEntries(fixtureDir)
			if err != nil {
				return err
			}
			manifests[fixtureDir] = entries
		}

		name := filepath.Base(path)
		data, err := os.ReadFile(path)
		if err != nil {
			failed = append(failed, err)
			continue
		}
		entry := manifests[fixtureDir][name]
		d, err := fixture.Decode(entry.Kind, data)
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", name, err))
			table.Append([]string{name, "undecodable", "size", strconv.Itoa(len(data))})
			continue
		}
		rows := d.Fields
		if v := fixtureVariant(name, entry); v != "" {
			rows = append(rows, fixture.Field{Name: "variant", Value: v})
		}
		rows = append(rows, fixture.Field{Name: "size", Value: strconv.Itoa(d.Size)})
		if d.Extra > 0 {
			rows = append(rows, fixture.Field{Name: "extension_bytes", Value: strconv.Itoa(d.Extra)})
		}
		for i, f := range rows {
			file, typ := "", ""
			if i == 0 {
				file, typ = name, d.Type
			}
			table.Append([]string{file, typ, f.Name, f.Value})
		}
	}
	table.Render()
	return errors.Join(failed...)
}

// manifestEntries indexes the manifest in dir by fixture file name. A missing manifest yields an
// empty map.
func manifestEntries(dir string) (map[string]registry.ManifestEntry, error) {
	m, err := registry.ReadManifest(filepath.Join(dir, config.DefaultManifestFilename))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]registry.ManifestEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	entries := make(map[string]registry.ManifestEntry, len(m.Accounts))
	for _, a := range m.Accounts {
		entries[a.File] = a
	}
	return entries, nil
}

// fixtureVariant names the token program variant of a fixture, from the manifest when it lists the
// file and otherwise from a numeric key suffix such as mint_2022.bin.
func fixtureVariant(name string, entry registry.ManifestEntry) string {
	if entry.Variant != "" {
		return entry.Variant
	}
	_, n, ok := output.SplitNumericSuffix(strings.TrimSuffix(name, filepath.Ext(name)))
	if !ok {
		return ""
	}
	v, err := tokenprog.Parse(strconv.FormatUint(n, 10))
	if err != nil {
		return ""
	}
	return v.String()
}
