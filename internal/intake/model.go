package intake

// Loan is a requested loan amount, owned by exactly one applicant.
type Loan struct {
	ID     int64
	Amount float64
}

// Document references an encrypted file stored on disk by its generated name.
type Document struct {
	ID   int64
	Name string
}

// User is a loan applicant assembled from validated form input. The ID is
// assigned by the repository on save; the value is immutable afterwards.
type User struct {
	ID          int64
	FullName    string
	Email       string
	PhoneNumber string
	Loans       []Loan
	Documents   []Document
}

// AddLoan appends a loan to the applicant.
func (u *User) AddLoan(loan Loan) {
	u.Loans = append(u.Loans, loan)
}

// AddDocument appends a stored-document reference to the applicant.
func (u *User) AddDocument(doc Document) {
	u.Documents = append(u.Documents, doc)
}
