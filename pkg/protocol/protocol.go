package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Layout de um frame no fio:
//
//	[4 bytes length big-endian][1 byte flag][length bytes de payload UTF-8]
//
// O length não inclui o byte de flag.
const (
	HeaderSize = 4
	FlagSize   = 1

	// MaxPayloadSize limita o length aceito, evitando alocar buffers absurdos por um header corrompido
	MaxPayloadSize = 1 << 20
)

const (
	flagMore byte = 0
	flagEnd  byte = 1
)

var (
	// ErrConnectionBroken indica que o peer fechou a conexão ou o transporte
	// entregou 0 bytes no meio de um frame. Fatal para a sessão.
	ErrConnectionBroken = errors.New("connection broken")
	// ErrMalformedPayload indica um frame que não pode ser interpretado
	ErrMalformedPayload = errors.New("malformed payload")
)

// Error carrega a operação tentada e quantos bytes já tinham sido transferidos
type Error struct {
	Op    string
	Bytes int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d bytes): %v", e.Op, e.Bytes, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message é um frame já decodificado
type Message struct {
	End     bool
	Payload []byte
}

// Text retorna o payload sem whitespace/newline no final, pronto para ser interpretado
func (m Message) Text() string {
	return strings.TrimRightFunc(string(m.Payload), isSpace)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\r' || r == '\t'
}

// Conn envolve um stream (normalmente net.Conn) e troca mensagens framed
type Conn struct {
	rw io.ReadWriter
}

func NewConn(rw io.ReadWriter) *Conn { return &Conn{rw: rw} }

// Send monta header+flag+payload em um único buffer e escreve até o fim.
// Um Write que devolve 0 bytes sem erro é tratado como conexão quebrada.
func (c *Conn) Send(payload []byte, end bool) error {
	if len(payload) > MaxPayloadSize {
		return &Error{Op: "send", Err: fmt.Errorf("%w: payload too large (%d bytes)", ErrMalformedPayload, len(payload))}
	}

	buf := make([]byte, HeaderSize+FlagSize+len(payload))
	binary.BigEndian.PutUint32(buf[:HeaderSize], uint32(len(payload)))
	buf[HeaderSize] = flagMore
	if end {
		buf[HeaderSize] = flagEnd
	}
	copy(buf[HeaderSize+FlagSize:], payload)

	total := 0
	for total < len(buf) {
		n, err := c.rw.Write(buf[total:])
		total += n
		if err != nil {
			return &Error{Op: "send", Bytes: total, Err: fmt.Errorf("%w: %v", ErrConnectionBroken, err)}
		}
		if n == 0 {
			return &Error{Op: "send", Bytes: total, Err: ErrConnectionBroken}
		}
	}
	return nil
}

// Receive lê exatamente um frame, acumulando leituras parciais
func (c *Conn) Receive() (Message, error) {
	var header [HeaderSize + FlagSize]byte
	if err := c.readFull("receive header", header[:HeaderSize]); err != nil {
		return Message{}, err
	}
	length := binary.BigEndian.Uint32(header[:HeaderSize])
	if length > MaxPayloadSize {
		return Message{}, &Error{Op: "receive header", Bytes: HeaderSize,
			Err: fmt.Errorf("%w: payload too large (%d bytes)", ErrMalformedPayload, length)}
	}

	if err := c.readFull("receive flag", header[HeaderSize:]); err != nil {
		return Message{}, err
	}
	flag := header[HeaderSize]
	if flag != flagMore && flag != flagEnd {
		return Message{}, &Error{Op: "receive flag", Bytes: FlagSize,
			Err: fmt.Errorf("%w: unknown flag %d", ErrMalformedPayload, flag)}
	}

	payload := make([]byte, length)
	if err := c.readFull("receive payload", payload); err != nil {
		return Message{}, err
	}
	if !utf8.Valid(payload) {
		return Message{}, &Error{Op: "receive payload", Bytes: len(payload),
			Err: fmt.Errorf("%w: payload is not valid utf-8", ErrMalformedPayload)}
	}

	return Message{End: flag == flagEnd, Payload: payload}, nil
}

// readFull é o equivalente a io.ReadFull, mas uma leitura de 0 bytes
// (com ou sem erro) antes de completar o buffer vira ErrConnectionBroken
func (c *Conn) readFull(op string, buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := c.rw.Read(buf[read:])
		read += n
		if read == len(buf) {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return &Error{Op: op, Bytes: read, Err: ErrConnectionBroken}
			}
			return &Error{Op: op, Bytes: read, Err: fmt.Errorf("%w: %v", ErrConnectionBroken, err)}
		}
		if n == 0 {
			return &Error{Op: op, Bytes: read, Err: ErrConnectionBroken}
		}
	}
	return nil
}
