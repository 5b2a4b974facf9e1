package pipeline

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-scrape-listopia/models"
	_ "modernc.org/sqlite"
)

const booksSchema = `
CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	original_publish_date TEXT NOT NULL,
	rating TEXT NOT NULL,
	number_of_ratings TEXT NOT NULL,
	number_of_pages TEXT NOT NULL,
	number_of_reviews TEXT NOT NULL,
	genres TEXT NOT NULL,
	url TEXT NOT NULL
)`

// SQLiteWriter stores books in a SQLite database file.
type SQLiteWriter struct {
	db      *sql.DB
	written int
	mu      sync.Mutex
}

// NewSQLiteWriter opens (or creates) filename and ensures the books table.
func NewSQLiteWriter(filename string) (*SQLiteWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.Exec(booksSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create books table: %w", err)
	}

	return &SQLiteWriter{db: db}, nil
}

// Write inserts books in a single transaction.
func (sw *SQLiteWriter) Write(books []*models.Book) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	tx, err := sw.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO books (title, author, original_publish_date, rating, number_of_ratings, number_of_pages, number_of_reviews, genres, url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, book := range books {
		if _, err := stmt.Exec(
			book.Title,
			book.Author,
			book.OriginalPublishDate,
			book.Rating,
			book.NumberOfRatings,
			book.NumberOfPages,
			book.NumberOfReviews,
			GenresCell(book.Genres),
			book.URL,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert book %q: %w", book.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit books: %w", err)
	}
	sw.written += len(books)
	return nil
}

// Close releases the database handle.
func (sw *SQLiteWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.db.Close()
}

// Validate checks the table holds at least the rows written by this writer.
func (sw *SQLiteWriter) Validate() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	var count int
	if err := sw.db.QueryRow("SELECT COUNT(*) FROM books").Scan(&count); err != nil {
		return fmt.Errorf("count books: %w", err)
	}
	if count < sw.written {
		return fmt.Errorf("sqlite holds %d books, wrote %d", count, sw.written)
	}
	return nil
}
