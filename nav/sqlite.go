// nav/sqlite.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/flyplan/flyplan/math"

	_ "modernc.org/sqlite"
)

// OpenSQLite reads a navigation database from a SQLite file. The engine
// reads everything up front into the in-memory Database; the connection
// is closed before returning, so a database swap never races a query.
func OpenSQLite(path string) (*Database, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer conn.Close()

	db := newDatabase()

	if err := loadSQLiteAirports(conn, db); err != nil {
		return nil, fmt.Errorf("%s: airports: %w", path, err)
	}
	if err := loadSQLiteNavaids(conn, db); err != nil {
		return nil, fmt.Errorf("%s: navaids: %w", path, err)
	}
	if err := loadSQLiteWaypoints(conn, db); err != nil {
		return nil, fmt.Errorf("%s: waypoints: %w", path, err)
	}
	if err := loadSQLiteAirways(conn, db); err != nil {
		return nil, fmt.Errorf("%s: airways: %w", path, err)
	}
	if err := loadSQLiteProcedures(conn, db); err != nil {
		return nil, fmt.Errorf("%s: procedures: %w", path, err)
	}

	db.assignIDs()

	// Key derived caches off the file identity rather than its contents;
	// hashing a multi-hundred-MB database on every start is not worth it.
	if fi, err := os.Stat(path); err == nil {
		db.Checksum = fmt.Sprintf("%x", sha256.Sum256(fmt.Appendf(nil, "%s|%d|%d",
			path, fi.Size(), fi.ModTime().UnixNano())))
	}

	return db, nil
}

func loadSQLiteAirports(conn *sql.DB, db *Database) error {
	rows, err := conn.Query(
		`SELECT ident, name, lat, lon, elevation FROM airport`)
	if err != nil {
		return err
	}

	for rows.Next() {
		ap := &Airport{
			SIDs:       make(map[string]*Procedure),
			STARs:      make(map[string]*Procedure),
			Approaches: make(map[string]*Procedure),
		}
		var lat, lon float64
		if err := rows.Scan(&ap.Ident, &ap.Name, &lat, &lon, &ap.Elevation); err != nil {
			rows.Close()
			return err
		}
		ap.Location = math.Point2LL{float32(lon), float32(lat)}
		db.Airports[ap.Ident] = ap
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = conn.Query(
		`SELECT airport_ident, id, heading, lat, lon, elevation, length FROM runway`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var apIdent string
		var rwy Runway
		var lat, lon float64
		if err := rows.Scan(&apIdent, &rwy.Id, &rwy.Heading, &lat, &lon, &rwy.Elevation, &rwy.Length); err != nil {
			return err
		}
		rwy.Threshold = math.Point2LL{float32(lon), float32(lat)}
		if ap, ok := db.Airports[apIdent]; ok {
			ap.Runways = append(ap.Runways, rwy)
		}
	}
	return rows.Err()
}

func loadSQLiteNavaids(conn *sql.DB, db *Database) error {
	rows, err := conn.Query(
		`SELECT ident, name, type, frequency, range, lat, lon FROM navaid`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		n := &Navaid{}
		var typ string
		var lat, lon float64
		if err := rows.Scan(&n.Ident, &n.Name, &typ, &n.Frequency, &n.Range, &lat, &lon); err != nil {
			return err
		}
		switch typ {
		case "VOR":
			n.Type = NavaidVOR
		case "VORDME":
			n.Type = NavaidVORDME
		case "DME":
			n.Type = NavaidDME
		case "NDB":
			n.Type = NavaidNDB
		default:
			continue // TACAN and friends; not usable for routing
		}
		n.Location = math.Point2LL{float32(lon), float32(lat)}
		db.Navaids[n.Ident] = n
	}
	return rows.Err()
}

func loadSQLiteWaypoints(conn *sql.DB, db *Database) error {
	rows, err := conn.Query(`SELECT ident, lat, lon FROM waypoint`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		f := &Fix{}
		var lat, lon float64
		if err := rows.Scan(&f.Ident, &lat, &lon); err != nil {
			return err
		}
		f.Location = math.Point2LL{float32(lon), float32(lat)}
		db.Fixes[f.Ident] = f
	}
	return rows.Err()
}

func loadSQLiteAirways(conn *sql.DB, db *Database) error {
	rows, err := conn.Query(
		`SELECT name, level, fix, min_altitude FROM airway_fix ORDER BY name, seq`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, level string
		var af AirwayFix
		if err := rows.Scan(&name, &level, &af.Fix, &af.MinAltitude); err != nil {
			return err
		}
		aw, ok := db.Airways[name]
		if !ok {
			aw = &Airway{Name: name}
			switch level {
			case "low", "V":
				aw.Level = AirwayLevelLow
			case "high", "J":
				aw.Level = AirwayLevelHigh
			default:
				aw.Level = AirwayLevelBoth
			}
			db.Airways[name] = aw
		}
		aw.Fixes = append(aw.Fixes, af)
	}
	return rows.Err()
}

func loadSQLiteProcedures(conn *sql.DB, db *Database) error {
	// Procedure fix sequences are stored as JSON columns; the stored form
	// matches the navData JSON schema.
	rows, err := conn.Query(
		`SELECT airport_ident, kind, name, runway, fixes, transitions, missed FROM procedure`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var apIdent, kind string
		var fixes, transitions, missed sql.NullString
		proc := &Procedure{}
		if err := rows.Scan(&apIdent, &kind, &proc.Name, &proc.Runway, &fixes, &transitions, &missed); err != nil {
			return err
		}
		ap, ok := db.Airports[apIdent]
		if !ok {
			continue
		}

		if fixes.Valid {
			if err := json.Unmarshal([]byte(fixes.String), &proc.Fixes); err != nil {
				return fmt.Errorf("%s %s: %w", apIdent, proc.Name, err)
			}
		}
		if transitions.Valid && transitions.String != "" {
			if err := json.Unmarshal([]byte(transitions.String), &proc.Transitions); err != nil {
				return fmt.Errorf("%s %s: %w", apIdent, proc.Name, err)
			}
		}
		if missed.Valid && missed.String != "" {
			if err := json.Unmarshal([]byte(missed.String), &proc.Missed); err != nil {
				return fmt.Errorf("%s %s: %w", apIdent, proc.Name, err)
			}
		}

		switch kind {
		case "SID":
			ap.SIDs[proc.Name] = proc
		case "STAR":
			ap.STARs[proc.Name] = proc
		case "APPROACH":
			ap.Approaches[proc.Name] = proc
		}
	}
	return rows.Err()
}
