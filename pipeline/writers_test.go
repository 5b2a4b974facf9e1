package pipeline

import (
	"bufio"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-scrape-listopia/models"
)

func sampleBook() *models.Book {
	return &models.Book{
		Title:               "Test Book",
		Author:              "Jane Doe",
		OriginalPublishDate: "March 1, 2001",
		Rating:              "4.12",
		NumberOfRatings:     "1234",
		NumberOfPages:       "312",
		NumberOfReviews:     "56",
		Genres:              []string{"Fantasy", "Fiction"},
		URL:                 "http://example.test/book/show/1",
	}
}

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "books.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}

	if err := writer.Write([]*models.Book{sampleBook()}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}
	for i, column := range CSVHeader {
		if records[0][i] != column {
			t.Fatalf("header[%d]=%q, want %q", i, records[0][i], column)
		}
	}
	want := []string{"Test Book", "Jane Doe", "March 1, 2001", "4.12", "1234", "312", "56", "Fantasy, Fiction"}
	for i := range want {
		if records[1][i] != want[i] {
			t.Fatalf("row[%d]=%q, want %q", i, records[1][i], want[i])
		}
	}
}

func TestCSVWriterEmptyRunKeepsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "books.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write(nil); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if string(data) != "title,author,original_publish_date,rating,number_of_ratings,number_of_pages,number_of_reviews,genres\n" {
		t.Fatalf("unexpected csv: %q", data)
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "books.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}

	if err := writer.Write([]*models.Book{sampleBook()}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		var decoded models.Book
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		if decoded.URL != "http://example.test/book/show/1" || len(decoded.Genres) != 2 {
			t.Fatalf("unexpected record: %+v", decoded)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if count != 1 {
		t.Fatalf("json lines=%d, want 1", count)
	}
}

func TestDualWriterWrite(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "books.csv")

	writer, err := NewWriter("dual", csvPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}

	if err := writer.Write([]*models.Book{sampleBook()}); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
	if info, err := os.Stat(filepath.Join(dir, "books.jsonl")); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}

func TestDualWriterOpenFailureLeavesNoCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "books.csv")
	if err := os.Mkdir(DualJSONPath(csvPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if _, err := NewWriter("dual", csvPath); err == nil {
		t.Fatalf("expected error when the jsonl path is a directory")
	}
	if _, err := os.Stat(csvPath); !os.IsNotExist(err) {
		t.Fatalf("csv export left behind after failed open: %v", err)
	}
}

func TestDualWriterWriteFailureRemovesBothFiles(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "books.csv")
	jsonPath := DualJSONPath(csvPath)

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	// the jsonl half fails on flush once its file is gone
	writer.jsonl.file.Close()

	if err := writer.Write([]*models.Book{sampleBook()}); err == nil {
		t.Fatalf("expected jsonl write error")
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close after discard: %v", err)
	}
	for _, path := range []string{csvPath, jsonPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("%s left behind after failed write: %v", path, err)
		}
	}
	if err := writer.Write([]*models.Book{sampleBook()}); err == nil {
		t.Fatalf("expected write to a discarded export to fail")
	}
}

func TestDualJSONPath(t *testing.T) {
	tests := map[string]string{
		"books.csv":     "books.jsonl",
		"out/books.csv": "out/books.jsonl",
		"books":         "books.jsonl",
	}
	for in, want := range tests {
		if got := DualJSONPath(in); got != want {
			t.Fatalf("DualJSONPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSQLiteWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.db")

	writer, err := NewWriter("sqlite", path)
	if err != nil {
		t.Fatalf("create sqlite writer: %v", err)
	}
	second := sampleBook()
	second.Title = "Second"
	second.Genres = nil

	if err := writer.Write([]*models.Book{sampleBook(), second}); err != nil {
		t.Fatalf("write sqlite: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate sqlite: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close sqlite: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	var genres string
	if err := db.QueryRow("SELECT genres FROM books WHERE title = ?", "Test Book").Scan(&genres); err != nil {
		t.Fatalf("query sqlite: %v", err)
	}
	if genres != "Fantasy, Fiction" {
		t.Fatalf("genres=%q, want %q", genres, "Fantasy, Fiction")
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM books").Scan(&count); err != nil {
		t.Fatalf("count sqlite: %v", err)
	}
	if count != 2 {
		t.Fatalf("rows=%d, want 2", count)
	}
}

func TestNewWriterUnsupportedFormat(t *testing.T) {
	if _, err := NewWriter("xml", filepath.Join(t.TempDir(), "books.xml")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
