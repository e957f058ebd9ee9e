package client

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/radieske/lottery-agency-poc/pkg/lottery"
)

// Batcher lê o CSV da agência (first_name,last_name,document,birthdate,number)
// e agrupa as apostas respeitando a quantidade máxima e o teto de bytes por batch
type Batcher struct {
	r         *csv.Reader
	agency    int
	maxAmount int
	maxBytes  int

	pending *lottery.Bet
	line    int
}

func NewBatcher(r io.Reader, agency, maxAmount, maxBytes int) *Batcher {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5
	cr.TrimLeadingSpace = true
	return &Batcher{r: cr, agency: agency, maxAmount: maxAmount, maxBytes: maxBytes}
}

// Next devolve o próximo batch já codificado; io.EOF quando não há mais apostas
func (b *Batcher) Next() ([]lottery.Bet, []byte, error) {
	var bets []lottery.Bet
	size := 0

	for len(bets) < b.maxAmount {
		bet, err := b.read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		rec, err := lottery.EncodeBatch([]lottery.Bet{bet})
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", b.line, err)
		}
		extra := len(rec)
		if len(bets) > 0 {
			extra += len(lottery.RecordDelimiter)
		}
		if size+extra > b.maxBytes {
			if len(bets) == 0 {
				return nil, nil, fmt.Errorf("line %d: bet of %d bytes exceeds batch limit %d", b.line, len(rec), b.maxBytes)
			}
			b.pending = &bet
			break
		}
		bets = append(bets, bet)
		size += extra
	}

	if len(bets) == 0 {
		return nil, nil, io.EOF
	}
	payload, err := lottery.EncodeBatch(bets)
	if err != nil {
		return nil, nil, err
	}
	return bets, payload, nil
}

func (b *Batcher) read() (lottery.Bet, error) {
	if b.pending != nil {
		bet := *b.pending
		b.pending = nil
		return bet, nil
	}

	rec, err := b.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return lottery.Bet{}, io.EOF
		}
		return lottery.Bet{}, fmt.Errorf("read bets: %w", err)
	}
	b.line++

	number, err := strconv.Atoi(strings.TrimSpace(rec[4]))
	if err != nil {
		return lottery.Bet{}, fmt.Errorf("line %d: invalid number %q", b.line, rec[4])
	}
	return lottery.Bet{
		Agency:    b.agency,
		FirstName: strings.TrimSpace(rec[0]),
		LastName:  strings.TrimSpace(rec[1]),
		Document:  strings.TrimSpace(rec[2]),
		Birthdate: strings.TrimSpace(rec[3]),
		Number:    number,
	}, nil
}
