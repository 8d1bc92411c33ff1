package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/Dhoini/subscription-service/pkg/logger"
)

// Verifier проверяет подлинность входящих вебхуков провайдера.
// Подпись — это hex-дайджест HMAC-SHA256 от сырых байтов тела запроса.
type Verifier struct {
	secret []byte
	log    *logger.Logger
}

// NewVerifier создает новый Verifier с общим секретом
func NewVerifier(secret string, log *logger.Logger) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		log:    log,
	}
}

// Verify проверяет подпись для сырого тела запроса.
// Тело должно быть ровно теми байтами, что пришли по сети: повторная
// сериализация разобранного JSON меняет содержимое и ломает подпись.
// Любая внутренняя проблема (пустой секрет, некорректная подпись)
// неотличима от несовпадения — в обоих случаях возвращается false.
func (v *Verifier) Verify(signature string, payload []byte) bool {
	if len(v.secret) == 0 {
		v.log.Warnw("Webhook secret is empty, rejecting payload")
		return false
	}
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal — сравнение за константное время
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Sign возвращает hex-подпись для тела запроса (используется в тестах)
func (v *Verifier) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
