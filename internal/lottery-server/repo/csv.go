package repo

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/radieske/lottery-agency-poc/pkg/lottery"
)

// CSVStore persiste as apostas num arquivo CSV, uma linha por aposta:
// agency,document,first_name,last_name,birthdate,number
type CSVStore struct {
	path string
}

// NewCSVStore cria o arquivo se ainda não existir
func NewCSVStore(path string) (*CSVStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStoreIO, path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("%w: close %s: %v", ErrStoreIO, path, err)
	}
	return &CSVStore{path: path}, nil
}

// Append escreve o batch inteiro de uma vez, na ordem recebida
func (s *CSVStore) Append(_ context.Context, bets []lottery.Bet) error {
	if len(bets) == 0 {
		return nil
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrStoreIO, s.path, err)
	}

	w := csv.NewWriter(f)
	for _, b := range bets {
		rec := []string{
			strconv.Itoa(b.Agency), b.Document, b.FirstName, b.LastName, b.Birthdate, strconv.Itoa(b.Number),
		}
		if err := w.Write(rec); err != nil {
			_ = f.Close()
			return fmt.Errorf("%w: write %s: %v", ErrStoreIO, s.path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: flush %s: %v", ErrStoreIO, s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrStoreIO, s.path, err)
	}
	return nil
}

// ScanAll relê o arquivo inteiro
func (s *CSVStore) ScanAll(_ context.Context) ([]lottery.Bet, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStoreIO, s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	var bets []lottery.Bet
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return bets, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrStoreIO, s.path, err)
		}

		agency, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad agency %q", ErrStoreIO, s.path, rec[0])
		}
		number, err := strconv.Atoi(rec[5])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad number %q", ErrStoreIO, s.path, rec[5])
		}
		bets = append(bets, lottery.Bet{
			Agency:    agency,
			Document:  rec[1],
			FirstName: rec[2],
			LastName:  rec[3],
			Birthdate: rec[4],
			Number:    number,
		})
	}
}
