package postgres

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users  *UserRepository
	Tasks  *TaskRepository
	Tokens *TokenRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool PoolIface) *Repositories {
	return &Repositories{
		Users:  NewUserRepository(pool),
		Tasks:  NewTaskRepository(pool),
		Tokens: NewTokenRepository(pool),
	}
}
