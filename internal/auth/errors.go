package auth

import (
	"errors"
)

// Code identifies an identity-provider failure the user can act on.
type Code string

const (
	CodeUserNotFound      Code = "user-not-found"
	CodeWrongPassword     Code = "wrong-password"
	CodeEmailInUse        Code = "email-already-in-use"
	CodeInvalidEmail      Code = "invalid-email"
	CodeWeakPassword      Code = "weak-password"
	CodePasswordMismatch  Code = "password-mismatch"
	CodeMissingFields     Code = "missing-fields"
	CodeTooManyRequests   Code = "too-many-requests"
	CodeInvalidResetToken Code = "invalid-reset-token"
)

// Op names the operation that failed; some codes read differently per operation.
type Op string

const (
	OpSignUp        Op = "sign-up"
	OpSignIn        Op = "sign-in"
	OpPasswordReset Op = "password-reset"
)

// Error is a coded identity-provider error.
type Error struct {
	Op   Op
	Code Code
}

func (e *Error) Error() string {
	return "auth: " + string(e.Op) + ": " + string(e.Code)
}

// ErrInvalidSession is returned for missing, expired, malformed or revoked tokens.
var ErrInvalidSession = errors.New("auth: invalid session")

func fail(op Op, code Code) error {
	return &Error{Op: op, Code: code}
}

// CodeOf extracts the code from err, or "" when err is not an auth error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

var messages = map[Code]string{
	CodeWrongPassword:     "Email ou senha incorretos",
	CodeEmailInUse:        "Este email já está em uso",
	CodeInvalidEmail:      "Email inválido",
	CodeWeakPassword:      "A senha deve ter pelo menos 6 caracteres",
	CodePasswordMismatch:  "As senhas não coincidem",
	CodeMissingFields:     "Por favor, preencha todos os campos",
	CodeTooManyRequests:   "Muitas tentativas. Aguarde um pouco e tente novamente",
	CodeInvalidResetToken: "Link de recuperação inválido ou expirado",
}

var fallback = map[Op]string{
	OpSignUp:        "Ocorreu um erro ao criar a conta",
	OpSignIn:        "Ocorreu um erro ao fazer login",
	OpPasswordReset: "Ocorreu um erro ao enviar o email de recuperação",
}

// Message maps err to the pt-BR text shown to the user.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		if errors.Is(err, ErrInvalidSession) {
			return "Sessão expirada. Faça login novamente"
		}
		return "Ocorreu um erro inesperado"
	}
	if e.Code == CodeUserNotFound {
		// Sign-in does not reveal which half was wrong.
		if e.Op == OpPasswordReset {
			return "Não existe uma conta com este email"
		}
		return messages[CodeWrongPassword]
	}
	if msg, ok := messages[e.Code]; ok {
		return msg
	}
	if msg, ok := fallback[e.Op]; ok {
		return msg
	}
	return "Ocorreu um erro inesperado"
}
