package spatial

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	_ "modernc.org/sqlite"
)

// gpkgEnvelopeSizes maps the envelope indicator of a GeoPackage geometry
// header to the envelope length in bytes.
var gpkgEnvelopeSizes = [...]int{0, 32, 48, 48, 64}

type gpkgTable struct {
	name     string
	column   string
	srsID    int64
	declared orb.Bound
}

func readGeoPackage(ctx context.Context, path, name string) (*Layer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening geopackage: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "PRAGMA query_only=ON"); err != nil {
		return nil, fmt.Errorf("set query_only: %w", err)
	}

	table, err := findFeatureTable(ctx, db, name)
	if err != nil {
		return nil, err
	}

	crs, err := gpkgCRS(ctx, db, table.srsID)
	if err != nil {
		return nil, err
	}

	layer := &Layer{Path: path, CRS: crs, Declared: table.declared}

	query := fmt.Sprintf("SELECT %s FROM %s", quoteIdent(table.column), quoteIdent(table.name))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading layer %s: %w", table.name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scanning geometry: %w", err)
		}
		g, err := decodeGPKGGeometry(blob)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", table.name, err)
		}
		if g != nil {
			layer.Geometries = append(layer.Geometries, g)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading layer %s: %w", table.name, err)
	}
	return layer, nil
}

func findFeatureTable(ctx context.Context, db *sql.DB, name string) (*gpkgTable, error) {
	query := `SELECT c.table_name, g.column_name, c.srs_id, c.min_x, c.min_y, c.max_x, c.max_y
		FROM gpkg_contents c
		JOIN gpkg_geometry_columns g ON g.table_name = c.table_name
		WHERE c.data_type = 'features'`
	args := []any{}
	if name != "" {
		query += " AND c.table_name = ?"
		args = append(args, name)
	}
	query += " ORDER BY c.table_name LIMIT 1"

	var (
		t                      gpkgTable
		srs                    sql.NullInt64
		minX, minY, maxX, maxY sql.NullFloat64
	)
	err := db.QueryRowContext(ctx, query, args...).Scan(&t.name, &t.column, &srs, &minX, &minY, &maxX, &maxY)
	if errors.Is(err, sql.ErrNoRows) {
		if name != "" {
			return nil, fmt.Errorf("no feature layer named %q", name)
		}
		return nil, errors.New("no feature layers")
	}
	if err != nil {
		return nil, fmt.Errorf("reading gpkg_contents: %w", err)
	}

	t.srsID = srs.Int64
	if minX.Valid && minY.Valid && maxX.Valid && maxY.Valid {
		t.declared = orb.Bound{Min: orb.Point{minX.Float64, minY.Float64}, Max: orb.Point{maxX.Float64, maxY.Float64}}
	}
	return &t, nil
}

// gpkgCRS returns "EPSG:<code>" for EPSG-registered systems, the stored
// definition otherwise, and "" for the undefined systems 0 and -1.
func gpkgCRS(ctx context.Context, db *sql.DB, srsID int64) (string, error) {
	if srsID == 0 || srsID == -1 {
		return "", nil
	}

	var (
		org        sql.NullString
		orgID      sql.NullInt64
		definition sql.NullString
	)
	err := db.QueryRowContext(ctx,
		`SELECT organization, organization_coordsys_id, definition FROM gpkg_spatial_ref_sys WHERE srs_id = ?`,
		srsID).Scan(&org, &orgID, &definition)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading gpkg_spatial_ref_sys: %w", err)
	}

	if strings.EqualFold(org.String, "EPSG") && orgID.Valid && orgID.Int64 > 0 {
		return "EPSG:" + strconv.FormatInt(orgID.Int64, 10), nil
	}
	def := strings.TrimSpace(definition.String)
	if def == "" || strings.EqualFold(def, "undefined") {
		return "", nil
	}
	return def, nil
}

// decodeGPKGGeometry strips the GeoPackage binary header and decodes the
// WKB that follows. Empty geometries decode to nil.
func decodeGPKGGeometry(blob []byte) (orb.Geometry, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, errors.New("geometry is not a GeoPackage binary")
	}

	flags := blob[3]
	if flags&0x10 != 0 {
		return nil, nil
	}
	indicator := int(flags>>1) & 0x07
	if indicator >= len(gpkgEnvelopeSizes) {
		return nil, fmt.Errorf("invalid envelope indicator %d", indicator)
	}
	offset := 8 + gpkgEnvelopeSizes[indicator]
	if len(blob) < offset {
		return nil, errors.New("truncated geometry header")
	}

	g, err := wkb.Unmarshal(blob[offset:])
	if err != nil {
		return nil, fmt.Errorf("decoding WKB: %w", err)
	}
	return g, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
