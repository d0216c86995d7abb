package contextkeys

// Используем кастомный тип, чтобы избежать коллизий
type contextKey string

// DBContextKey - ключ, по которому в context.Context лежит *gorm.DB
// открытой транзакции (см. repositories.GormTransactor).
const DBContextKey = contextKey("db")

// AccountIDKey - ключ gin-контекста с ID аккаунта из JWT
const AccountIDKey = "userID"

// RoleKey - ключ gin-контекста с ролью из JWT
const RoleKey = "role"
