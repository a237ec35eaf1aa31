package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/school-admin/internal/lib/sl"
	"github.com/magabrotheeeer/school-admin/internal/models"
)

// Тела ответов на вебхук.
const (
	BodyOK               = "ok"
	BodyIgnored          = "ignored"
	BodyInvalidJSON      = "invalid json"
	BodyMissingUserID    = "missing user_id"
	BodyInvalidSignature = "invalid signature"
	BodyInternalError    = "internal error"
)

var errNotObject = errors.New("payload is not a json object")

// HandleWebhook обрабатывает уведомление шлюза и всегда возвращает текст ответа и HTTP-статус.
//
// Успешная оплата чекаута добавляет пользователю оплаченный период и снимает
// флаг отмены. Любое другое событие игнорируется. Ошибка хранилища даёт 500,
// чтобы шлюз повторил доставку.
func (s *Service) HandleWebhook(ctx context.Context, raw []byte, signature string) (body string, status int) {
	const op = "billing.HandleWebhook"
	log := s.log.With(slog.String("op", op))
	defer func() {
		s.metrics.WebhookHandled(body)
	}()

	if s.opts.SigningSecret != "" && !validSignature(raw, signature, s.opts.SigningSecret) {
		log.Warn("webhook signature mismatch")
		return BodyInvalidSignature, http.StatusUnauthorized
	}

	evt, err := normalizeEvent(raw)
	if err != nil {
		log.Warn("webhook payload is not valid json", sl.Err(err))
		return BodyInvalidJSON, http.StatusBadRequest
	}
	log = log.With(slog.String("entity", evt.Entity), slog.String("status", evt.Status))

	if !evt.Paid() {
		log.Info("webhook ignored")
		return BodyIgnored, http.StatusOK
	}

	userID, ok := parseUserID(evt.UserID)
	if !ok {
		log.Warn("webhook without usable user_id", slog.String("user_id", evt.UserID))
		return BodyMissingUserID, http.StatusBadRequest
	}
	log = log.With(sl.UserID(userID))

	dedupe := s.opts.Guard != nil && evt.ID != ""
	if dedupe {
		first, err := s.opts.Guard.MarkOnce(ctx, evt.ID)
		if err != nil {
			log.Error("failed to check webhook replay", sl.Err(err))
			return BodyInternalError, http.StatusInternalServerError
		}
		if !first {
			log.Info("webhook replay ignored", slog.String("event_id", evt.ID))
			return BodyIgnored, http.StatusOK
		}
	}

	p, err := s.Extend(ctx, userID)
	if err != nil {
		if dedupe {
			if ferr := s.opts.Guard.Forget(ctx, evt.ID); ferr != nil {
				log.Error("failed to release webhook event id", sl.Err(ferr))
			}
		}
		if errors.Is(err, models.ErrUserNotFound) {
			log.Warn("webhook for unknown user")
			return BodyMissingUserID, http.StatusBadRequest
		}
		log.Error("failed to extend billing period", sl.Err(err))
		return BodyInternalError, http.StatusInternalServerError
	}

	// период уже записан, повтор доставки начислил бы его второй раз
	if _, err := s.repo.ClearCancellation(ctx, userID); err != nil {
		log.Error("failed to clear cancellation flag", sl.Err(err))
	}

	log.Info("billing period extended",
		slog.String("period_start", p.PeriodStart.Format(time.DateOnly)),
		slog.String("period_end", p.PeriodEnd.Format(time.DateOnly)),
	)
	return BodyOK, http.StatusOK
}

// normalizeEvent приводит уведомление к одной структуре.
// Поля entity, status и metadata берутся с верхнего уровня; если entity там нет,
// используется вложенный объект data.
func normalizeEvent(raw []byte) (*models.WebhookEvent, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, err
	}
	if top == nil {
		return nil, errNotObject
	}

	evt := &models.WebhookEvent{
		ID:     jsonText(top["id"]),
		Entity: jsonText(top["entity"]),
		Status: jsonText(top["status"]),
	}
	metadata := jsonObject(top["metadata"])

	if evt.Entity == "" {
		if data := jsonObject(top["data"]); data != nil {
			if v := jsonText(data["entity"]); v != "" {
				evt.Entity = v
			}
			if v := jsonText(data["status"]); v != "" {
				evt.Status = v
			}
			if m := jsonObject(data["metadata"]); len(m) > 0 {
				metadata = m
			}
			if evt.ID == "" {
				evt.ID = jsonText(data["id"])
			}
		}
	}

	if metadata != nil {
		evt.UserID = jsonText(metadata["user_id"])
	}
	return evt, nil
}

// jsonText возвращает строку как есть, число в десятичной записи,
// остальные значения в исходном виде. null и отсутствие поля дают пустую строку.
func jsonText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := n.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
			return strconv.FormatInt(int64(f), 10)
		}
		return n.String()
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

func jsonObject(raw json.RawMessage) map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

func parseUserID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// validSignature сверяет заголовок signature с HMAC-SHA256 тела в hex.
func validSignature(raw []byte, signature, secret string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	return hmac.Equal(got, mac.Sum(nil))
}
