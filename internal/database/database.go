package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"ostello/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB is the shared reservation and hold store. Rooms, beds and guest-type
// rules are read-only reference data loaded from config and cached here;
// only reservations, privacy blocks, blocked days and holds are mutated.
type DB struct {
	*sql.DB

	mu          sync.RWMutex
	roomsCache  map[int64]models.Room
	sortedRooms []models.Room
	rules       []models.GuestTypeRule

	logger *zerolog.Logger
	now    func() time.Time
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		// Создаем директорию для БД, если её нет
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite сериализует записи; один коннект исключает SQLITE_BUSY
	// на конкурентных транзакциях Acquire.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")

	return &DB{
		DB:         sqlDB,
		roomsCache: make(map[int64]models.Room),
		logger:     logger,
		now:        time.Now,
	}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Таблица холдов
		`CREATE TABLE IF NOT EXISTS holds (
            id TEXT PRIMARY KEY,
            check_in TEXT NOT NULL,
            check_out TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'active',
            created_at DATETIME NOT NULL,
            last_heartbeat DATETIME NOT NULL,
            deadline DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		// Таблица бронирований
		`CREATE TABLE IF NOT EXISTS reservations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            hold_id TEXT,
            guest_name TEXT NOT NULL,
            email TEXT,
            phone TEXT,
            check_in TEXT NOT NULL,
            check_out TEXT NOT NULL,
            pension TEXT NOT NULL DEFAULT 'bb',
            status TEXT NOT NULL DEFAULT 'active',
            total REAL NOT NULL DEFAULT 0,
            city_tax REAL NOT NULL DEFAULT 0,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		// Занятые койки по ночам
		`CREATE TABLE IF NOT EXISTS reservation_beds (
            reservation_id INTEGER NOT NULL,
            room_id INTEGER NOT NULL,
            bed_id INTEGER NOT NULL,
            night TEXT NOT NULL
        )`,
		// Выкупленные пустые койки по ночам
		`CREATE TABLE IF NOT EXISTS privacy_blocks (
            reservation_id INTEGER NOT NULL,
            room_id INTEGER NOT NULL,
            bed_id INTEGER NOT NULL,
            night TEXT NOT NULL
        )`,
		// Дни, закрытые администратором
		`CREATE TABLE IF NOT EXISTS blocked_days (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            day TEXT UNIQUE NOT NULL,
            reason TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_holds_status ON holds(status)`,
		`CREATE INDEX IF NOT EXISTS idx_holds_range ON holds(check_in, check_out)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_reservation_beds_night ON reservation_beds(night)`,
		`CREATE INDEX IF NOT EXISTS idx_privacy_blocks_night ON privacy_blocks(night)`,
		`CREATE INDEX IF NOT EXISTS idx_blocked_days_day ON blocked_days(day)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// SetInventory caches the read-only reference data the core prices and
// searches against.
func (db *DB) SetInventory(rooms []models.Room, rules []models.GuestTypeRule) {
	sorted := append([]models.Room(nil), rooms...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].SortOrder == sorted[j].SortOrder {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].SortOrder < sorted[j].SortOrder
	})

	db.mu.Lock()
	db.roomsCache = make(map[int64]models.Room, len(rooms))
	for _, room := range rooms {
		db.roomsCache[room.ID] = room
	}
	db.sortedRooms = sorted
	db.rules = append([]models.GuestTypeRule(nil), rules...)
	db.mu.Unlock()
}

// Rooms returns the cached room graph in display order.
func (db *DB) Rooms() []models.Room {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]models.Room(nil), db.sortedRooms...)
}

func (db *DB) RoomByID(id int64) (models.Room, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	room, ok := db.roomsCache[id]
	return room, ok
}

// Rules returns the cached guest-type rules.
func (db *DB) Rules() []models.GuestTypeRule {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]models.GuestTypeRule(nil), db.rules...)
}

// SetNowFunc overrides the clock, tests only.
func (db *DB) SetNowFunc(now func() time.Time) {
	db.now = now
}

func (db *DB) Close() error {
	return db.DB.Close()
}
