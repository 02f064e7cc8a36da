package user

// Response is the result of one successfully executed Command.
// The set of implementations mirrors Command: Created, Fetched, Listed,
// Updated and Deleted.
type Response interface {
	// Mutating reports whether the response stems from a store mutation.
	Mutating() bool
	isResponse()
}

// Created carries the newly inserted user.
type Created struct{ User User }

// Fetched carries the user read by id.
type Fetched struct{ User User }

// Listed carries one page of users.
type Listed struct{ Page Page }

// Updated carries the user state after the update committed.
type Updated struct{ User User }

// Deleted carries the id of the removed user.
type Deleted struct{ ID int64 }

func (Created) Mutating() bool { return true }
func (Fetched) Mutating() bool { return false }
func (Listed) Mutating() bool  { return false }
func (Updated) Mutating() bool { return true }
func (Deleted) Mutating() bool { return true }

func (Created) isResponse() {}
func (Fetched) isResponse() {}
func (Listed) isResponse()  {}
func (Updated) isResponse() {}
func (Deleted) isResponse() {}
