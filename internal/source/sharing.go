package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	delta_sharing "github.com/magpierre/go_delta_sharing_client"

	"github.com/JonMunkholm/frameview/internal/catalog"
	"github.com/JonMunkholm/frameview/internal/frame"
)

func init() {
	Register(Format{
		Name:       "sharing",
		Label:      "Delta Sharing profile",
		Extensions: []string{".share"},
		Decode:     decodeSharingProfile,
	})
}

// IsSharingProfile reports whether content looks like a Delta Sharing
// profile (shareCredentialsVersion, endpoint and bearerToken keys).
func IsSharingProfile(content string) bool {
	for _, key := range []string{`"shareCredentialsVersion"`, `"endpoint"`, `"bearerToken"`} {
		if !strings.Contains(content, key) {
			return false
		}
	}
	return true
}

// decodeSharingProfile lists every table reachable from the profile and
// loads the first data file of each. Tables are named share.schema.table.
func decodeSharingProfile(ctx context.Context, r io.Reader, opts Options) (any, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	profile := string(b)
	if !IsSharingProfile(profile) {
		return nil, fmt.Errorf("not a delta sharing profile")
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	client, err := delta_sharing.NewSharingClientFromString(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create Delta Sharing client: %w", err)
	}

	tables, _, err := client.ListAllTables(ctx, 0, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list all tables: %w", err)
	}
	if opts.MaxTables > 0 && len(tables) > opts.MaxTables {
		slog.Warn("delta sharing: table list truncated",
			"tables", len(tables),
			"max_tables", opts.MaxTables,
		)
		tables = tables[:opts.MaxTables]
	}

	frames := make([]*frame.Frame, 0, len(tables))
	for _, table := range tables {
		attrs := map[string]string{
			catalog.NameAttr: strings.Join([]string{table.Share, table.Schema, table.Name}, "."),
		}

		resp, err := client.ListFilesInTable(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("list files in %s: %w", attrs[catalog.NameAttr], err)
		}

		if len(resp.AddFiles) == 0 {
			f, err := frame.New(nil, nil, attrs)
			if err != nil {
				return nil, err
			}
			frames = append(frames, f)
			continue
		}

		tbl, err := client.ReadFileUrlToArrowTable(ctx, resp.AddFiles[0].Url)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", attrs[catalog.NameAttr], err)
		}
		f, err := frameFromTable(tbl, attrs)
		tbl.Release()
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", attrs[catalog.NameAttr], err)
		}
		frames = append(frames, f)
	}

	return frames, nil
}
