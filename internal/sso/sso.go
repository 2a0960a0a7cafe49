// Package sso реализует токены единого входа, которыми витрина передаёт покупателя
// Shopify в кабинет партнёра. Токен состоит из трёх параметров запроса:
// enc содержит обратимо замаскированный ID покупателя, t хранит время выпуска
// в секундах, sig равен HMAC-SHA256 от "enc.t".
package sso

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

// Ошибки проверки токена. Тексты показываются пользователю как есть.
var (
	ErrMissingParams    = errors.New("Parámetros incompletos")
	ErrMalformed        = errors.New("Token inválido")
	ErrInvalidSignature = errors.New("Firma inválida")
	ErrExpired          = errors.New("Token expirado")
)

const (
	// DefaultMaxAge задаёт срок жизни токена.
	DefaultMaxAge = 36000 * time.Second
	maxClockSkew  = 60 * time.Second
)

// Token содержит параметры запроса единого входа.
type Token struct {
	Enc string
	T   string
	Sig string
}

// Codec выпускает и проверяет токены единого входа.
type Codec struct {
	secret []byte
	mask   uint64
	maxAge time.Duration
	now    func() time.Time
}

// NewCodec создаёт Codec с общим с витриной секретом.
func NewCodec(secret string) *Codec {
	key := []byte(secret)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("sso-customer-mask"))
	mask := binary.BigEndian.Uint64(mac.Sum(nil)[:8])

	return &Codec{
		secret: key,
		mask:   mask,
		maxAge: DefaultMaxAge,
		now:    time.Now,
	}
}

// Sign выпускает токен для покупателя на момент at.
func (c *Codec) Sign(customerID int64, at time.Time) Token {
	enc := c.obfuscate(customerID)
	t := strconv.FormatInt(at.Unix(), 10)
	return Token{Enc: enc, T: t, Sig: c.signature(enc, t)}
}

// Verify проверяет подпись и срок действия токена и возвращает ID покупателя Shopify.
// Просроченный токен отклоняется даже при верной подписи.
func (c *Codec) Verify(tok Token) (int64, error) {
	if tok.Enc == "" || tok.T == "" || tok.Sig == "" {
		return 0, ErrMissingParams
	}

	issued, err := strconv.ParseInt(tok.T, 10, 64)
	if err != nil {
		return 0, ErrMalformed
	}

	expected := c.signature(tok.Enc, tok.T)
	if !hmac.Equal([]byte(expected), []byte(tok.Sig)) {
		return 0, ErrInvalidSignature
	}

	age := c.now().Sub(time.Unix(issued, 0))
	if age > c.maxAge || age < -maxClockSkew {
		return 0, ErrExpired
	}

	id, ok := c.reveal(tok.Enc)
	if !ok {
		return 0, ErrMalformed
	}
	return id, nil
}

func (c *Codec) signature(enc, t string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(enc))
	mac.Write([]byte("."))
	mac.Write([]byte(t))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Codec) obfuscate(id int64) string {
	return strconv.FormatUint(uint64(id)^c.mask, 36)
}

func (c *Codec) reveal(enc string) (int64, bool) {
	v, err := strconv.ParseUint(enc, 36, 64)
	if err != nil {
		return 0, false
	}
	id := int64(v ^ c.mask)
	if id <= 0 {
		return 0, false
	}
	return id, true
}
