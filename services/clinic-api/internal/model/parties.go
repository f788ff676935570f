package model

// Dentist, Client and Service are managed by the surrounding CRUD
// layer; the scheduling core only needs identity and active flags.

type Dentist struct {
	ID        string
	FirstName string
	LastName  string
	Active    bool
}

func (d Dentist) FullName() string {
	return d.FirstName + " " + d.LastName
}

type Client struct {
	ID     string
	Name   string
	Active bool
}

type Service struct {
	ID              string
	Name            string
	DurationMinutes int
	Active          bool
}
