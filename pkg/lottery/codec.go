package lottery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Delimiter separa os campos de uma aposta e os documentos da resposta de ganhadores
	Delimiter = ","
	// RecordDelimiter separa as apostas dentro de um batch
	RecordDelimiter = ";"

	// WinnersCommand é o comando da consulta de ganhadores: "WINNERS,<agency>"
	WinnersCommand = "WINNERS"

	betFields = 6
)

var (
	ErrMalformedBet   = errors.New("malformed bet")
	ErrMalformedQuery = errors.New("malformed winners query")
)

// EncodeBatch serializa apostas como "agency,document,first_name,last_name,birthdate,number;..."
func EncodeBatch(bets []Bet) ([]byte, error) {
	var sb strings.Builder
	for i, b := range bets {
		fields := []string{
			strconv.Itoa(b.Agency), b.Document, b.FirstName, b.LastName, b.Birthdate, strconv.Itoa(b.Number),
		}
		for _, f := range fields {
			if strings.Contains(f, Delimiter) || strings.Contains(f, RecordDelimiter) {
				return nil, fmt.Errorf("%w: bet %d: field %q contains a delimiter", ErrMalformedBet, i, f)
			}
		}
		if i > 0 {
			sb.WriteString(RecordDelimiter)
		}
		sb.WriteString(strings.Join(fields, Delimiter))
	}
	return []byte(sb.String()), nil
}

// DecodeBatch faz o caminho inverso de EncodeBatch, preservando a ordem das apostas.
// Payload vazio é um batch vazio válido.
func DecodeBatch(payload string) ([]Bet, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, nil
	}

	records := strings.Split(payload, RecordDelimiter)
	bets := make([]Bet, 0, len(records))
	for i, rec := range records {
		b, err := decodeBet(rec)
		if err != nil {
			return nil, fmt.Errorf("bet %d: %w", i, err)
		}
		bets = append(bets, b)
	}
	return bets, nil
}

func decodeBet(rec string) (Bet, error) {
	fields := strings.Split(rec, Delimiter)
	if len(fields) != betFields {
		return Bet{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedBet, betFields, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	agency, err := strconv.Atoi(fields[0])
	if err != nil || agency <= 0 {
		return Bet{}, fmt.Errorf("%w: invalid agency %q", ErrMalformedBet, fields[0])
	}
	if fields[1] == "" {
		return Bet{}, fmt.Errorf("%w: empty document", ErrMalformedBet)
	}
	if !validBirthdate(fields[4]) {
		return Bet{}, fmt.Errorf("%w: invalid birthdate %q", ErrMalformedBet, fields[4])
	}
	number, err := strconv.Atoi(fields[5])
	if err != nil || number < 0 {
		return Bet{}, fmt.Errorf("%w: invalid number %q", ErrMalformedBet, fields[5])
	}

	return Bet{
		Agency:    agency,
		Document:  fields[1],
		FirstName: fields[2],
		LastName:  fields[3],
		Birthdate: fields[4],
		Number:    number,
	}, nil
}

func EncodeWinnersQuery(agency int) []byte {
	return []byte(WinnersCommand + Delimiter + strconv.Itoa(agency))
}

// DecodeWinnersQuery valida "WINNERS,<agency>" e retorna o id da agência
func DecodeWinnersQuery(payload string) (int, error) {
	cmd, arg, ok := strings.Cut(strings.TrimSpace(payload), Delimiter)
	if !ok || cmd != WinnersCommand {
		return 0, fmt.Errorf("%w: unknown command %q", ErrMalformedQuery, payload)
	}
	agency, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || agency <= 0 {
		return 0, fmt.Errorf("%w: invalid agency %q", ErrMalformedQuery, arg)
	}
	return agency, nil
}

func EncodeWinners(documents []string) []byte {
	return []byte(strings.Join(documents, Delimiter))
}

// DecodeWinners retorna os documentos ganhadores; resposta vazia significa nenhum ganhador
func DecodeWinners(payload string) []string {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return []string{}
	}
	return strings.Split(payload, Delimiter)
}
