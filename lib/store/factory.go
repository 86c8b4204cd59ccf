package store

// Factory is a function type that creates a new IStore instance.
// This is used to abstract the creation of the backend from the code wiring
// it (the serve command, the shared test suite).
type Factory func() (IStore, error)

// MemDSN is the connection string selecting the in-memory backend.
const MemDSN = "mem://"
