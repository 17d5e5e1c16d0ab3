package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Falha ao codificar resposta JSON")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeAndValidate lê o JSON e aplica as tags `validate`. Responde 400 e devolve false se falhar.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Payload inválido")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			respondError(w, http.StatusBadRequest, "Payload inválido")
			return false
		}
		details := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, ValidationError{Field: fe.Field(), Message: validationMessage(fe)})
		}
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "Dados da requisição inválidos",
			"details": details,
		})
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return "Value is too long"
	default:
		return "Invalid value"
	}
}

// respondDomainError mapeia erros de domínio -> HTTP status code
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "Credenciais inválidas")
	case errors.Is(err, domain.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, "Sessão inválida ou expirada")
	case errors.Is(err, domain.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "Valor inválido")
	case errors.Is(err, domain.ErrInvalidPrecision):
		respondError(w, http.StatusBadRequest, "O valor pode ter no máximo 2 casas decimais")
	case errors.Is(err, domain.ErrBelowMinimum):
		respondError(w, http.StatusBadRequest, "O valor mínimo é 1.00 GPI")
	case errors.Is(err, domain.ErrSelfTransfer):
		respondError(w, http.StatusBadRequest, "Não é possível transferir para você mesmo")
	case errors.Is(err, domain.ErrRecipientNotFound):
		respondError(w, http.StatusNotFound, "Destinatário não encontrado")
	case errors.Is(err, domain.ErrAccountNotFound):
		respondError(w, http.StatusNotFound, "Conta não encontrada")
	case errors.Is(err, domain.ErrInsufficientBalance):
		respondError(w, http.StatusUnprocessableEntity, "Saldo insuficiente")
	default:
		// banco caiu, disco cheio, bug...
		log.Error().Err(err).Str("kind", string(domain.Kind(err))).Msg("Erro interno")
		respondError(w, http.StatusInternalServerError, "Erro interno do servidor")
	}
}
