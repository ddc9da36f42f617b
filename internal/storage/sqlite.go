// Package storage handles database connections, schema migrations, and data operations using SQLite.
package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/woozymasta/mcping/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

const serverColumns = `
	edition, address, hostname, ip, port, country_code, online,
	motd, version, protocol, players, max_players, latency_ms,
	fingerprint, last_error, count, first_seen, last_seen`

// New initializes a new SQLite connection, sets connection pool parameters, and runs migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// UpsertServer inserts a new server or updates an existing one keyed by edition and address.
// Descriptive fields are only replaced by an online record, so an offline check
// keeps the last known MOTD, version and player counts.
func (r *Repository) UpsertServer(s models.Server) error {
	query := `
	INSERT INTO servers (` + serverColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	ON CONFLICT(edition, address) DO UPDATE SET
		count       = count + 1,
		last_seen   = excluded.last_seen,
		online      = excluded.online,
		latency_ms  = excluded.latency_ms,
		last_error  = excluded.last_error,

		hostname     = CASE WHEN excluded.hostname != '' THEN excluded.hostname ELSE servers.hostname END,
		ip           = CASE WHEN excluded.ip != '' THEN excluded.ip ELSE servers.ip END,
		port         = CASE WHEN excluded.port != 0 THEN excluded.port ELSE servers.port END,
		country_code = CASE WHEN excluded.country_code != '' THEN excluded.country_code ELSE servers.country_code END,

		-- Status fields only when the server answered
		motd        = CASE WHEN excluded.online THEN excluded.motd ELSE servers.motd END,
		version     = CASE WHEN excluded.online THEN excluded.version ELSE servers.version END,
		protocol    = CASE WHEN excluded.online THEN excluded.protocol ELSE servers.protocol END,
		players     = CASE WHEN excluded.online THEN excluded.players ELSE servers.players END,
		max_players = CASE WHEN excluded.online THEN excluded.max_players ELSE servers.max_players END,
		fingerprint = CASE WHEN excluded.online THEN excluded.fingerprint ELSE servers.fingerprint END;
	`

	// Use LastSeen for FirstSeen when a new record is inserted
	firstSeen := s.FirstSeen
	if firstSeen.IsZero() {
		firstSeen = s.LastSeen
	}

	_, err := r.db.Exec(query,
		s.Edition, s.Address, s.Hostname, s.IP, s.Port, s.CountryCode, s.Online,
		s.Motd, s.Version, s.Protocol, s.Players, s.MaxPlayers, s.LatencyMS,
		int64(s.Fingerprint), s.LastError, firstSeen, s.LastSeen,
	)

	return err
}

// GetServers retrieves all servers, sorted by the last seen timestamp in descending order.
func (r *Repository) GetServers() ([]models.Server, error) {
	return r.queryServers(`SELECT ` + serverColumns + ` FROM servers ORDER BY last_seen DESC`)
}

// GetServer retrieves a specific server by edition and address. It returns nil when not found.
func (r *Repository) GetServer(edition, address string) (*models.Server, error) {
	row := r.db.QueryRow(`SELECT `+serverColumns+` FROM servers WHERE edition = ? AND address = ?`, edition, address)

	s, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// DeleteServer removes a specific server and its history.
func (r *Repository) DeleteServer(edition, address string) error {
	_, err := r.db.Exec(`DELETE FROM servers WHERE edition = ? AND address = ?`, edition, address)
	return err
}

// DeleteOfflineServers removes servers whose last check failed.
// If edition is provided (not empty), it restricts deletion to that edition.
func (r *Repository) DeleteOfflineServers(edition string) (int64, error) {
	query := `DELETE FROM servers WHERE online = 0`
	var args []any

	if edition != "" {
		query += ` AND edition = ?`
		args = append(args, edition)
	}

	res, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetServersSubset retrieves servers for maintenance.
// If onlyOffline is true, it returns only servers whose last check failed.
// If edition is provided, it filters by edition.
func (r *Repository) GetServersSubset(edition string, onlyOffline bool) ([]models.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE 1=1`
	var args []any

	if edition != "" {
		query += " AND edition = ?"
		args = append(args, edition)
	}

	if onlyOffline {
		query += " AND online = 0"
	}

	return r.queryServers(query, args...)
}

// AddHistory appends a status change for a tracked server.
func (r *Repository) AddHistory(edition, address string, e models.HistoryEntry) error {
	_, err := r.db.Exec(`
		INSERT INTO server_history (edition, address, online, players, fingerprint, error, changed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		edition, address, e.Online, e.Players, int64(e.Fingerprint), e.Error, e.ChangedAt,
	)
	return err
}

// GetHistory returns up to limit most recent status changes of a server, newest first.
func (r *Repository) GetHistory(edition, address string, limit int) ([]models.HistoryEntry, error) {
	rows, err := r.db.Query(`
		SELECT online, players, fingerprint, error, changed_at
		FROM server_history
		WHERE edition = ? AND address = ?
		ORDER BY changed_at DESC, id DESC
		LIMIT ?`,
		edition, address, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var history []models.HistoryEntry
	for rows.Next() {
		var (
			e           models.HistoryEntry
			fingerprint int64
		)
		if err := rows.Scan(&e.Online, &e.Players, &fingerprint, &e.Error, &e.ChangedAt); err != nil {
			return nil, err
		}
		e.Fingerprint = uint64(fingerprint)
		history = append(history, e)
	}

	return history, rows.Err()
}

func (r *Repository) queryServers(query string, args ...any) ([]models.Server, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var servers []models.Server
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			continue
		}
		servers = append(servers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return servers, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanServer(row scanner) (models.Server, error) {
	var (
		s           models.Server
		fingerprint int64
	)

	err := row.Scan(
		&s.Edition, &s.Address, &s.Hostname, &s.IP, &s.Port, &s.CountryCode, &s.Online,
		&s.Motd, &s.Version, &s.Protocol, &s.Players, &s.MaxPlayers, &s.LatencyMS,
		&fingerprint, &s.LastError, &s.Count, &s.FirstSeen, &s.LastSeen,
	)
	s.Fingerprint = uint64(fingerprint)

	return s, err
}
