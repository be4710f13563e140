package store

import (
	"database/sql"
)

type PgNotifyRepository struct {
	conn *sql.DB
}

func NewPgNotifyRepository(dsn string) (*PgNotifyRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgNotifyRepository{conn: db}, nil
}

func (db *PgNotifyRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgNotifyRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
