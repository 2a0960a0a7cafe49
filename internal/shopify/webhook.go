package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// HMACHeader содержит имя заголовка с подписью тела вебхука.
const HMACHeader = "X-Shopify-Hmac-Sha256"

// VerifyWebhook проверяет подпись вебхука: base64(HMAC-SHA256(secret, rawBody)).
func VerifyWebhook(rawBody []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	return hmac.Equal([]byte(SignWebhook(rawBody, secret)), []byte(signature))
}

// SignWebhook вычисляет подпись тела вебхука.
func SignWebhook(rawBody []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// NoteAttribute описывает дополнительный атрибут заказа, заданный корзиной.
type NoteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Order содержит часть полезной нагрузки вебхука orders/paid, нужная для начислений.
type Order struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	FinancialStatus string          `json:"financial_status"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Currency        string          `json:"currency"`
	NoteAttributes  []NoteAttribute `json:"note_attributes"`
}

// OrderID возвращает ID заказа в строковом виде.
func (o Order) OrderID() string {
	return strconv.FormatInt(o.ID, 10)
}

// Attribute возвращает значение первого найденного атрибута из перечисленных имён.
func (o Order) Attribute(names ...string) string {
	for _, name := range names {
		for _, a := range o.NoteAttributes {
			if strings.EqualFold(a.Name, name) {
				if v := strings.TrimSpace(a.Value); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

// Paid сообщает, оплачен ли заказ.
func (o Order) Paid() bool {
	return strings.EqualFold(o.FinancialStatus, "paid")
}
