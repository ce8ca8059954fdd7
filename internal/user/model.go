package user

type User struct {
	ID    uint
	Email string
	Role  string
}
