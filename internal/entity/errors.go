package entity

import "errors"

// Repositórios devolvem estes erros; os use cases traduzem para DomainError.
var (
	ErrLeadNotFound         = errors.New("lead não encontrado")
	ErrPipelineNotFound     = errors.New("pipeline não encontrado")
	ErrConversationNotFound = errors.New("conversa não encontrada")
	ErrMessageNotFound      = errors.New("mensagem não encontrada")
	ErrUserNotFound         = errors.New("usuário não encontrado")
	ErrDuplicate            = errors.New("registro duplicado")
)

var ErrSubscriberNotFound = errors.New("subscriber não encontrado na plataforma")
