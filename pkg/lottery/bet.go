package lottery

import "time"

// BirthdateLayout é o formato aceito para a data de nascimento do apostador
const BirthdateLayout = "2006-01-02"

// DefaultLuckyNumber é o número sorteado quando nenhum outro é configurado
const DefaultLuckyNumber = 7574

// Bet é uma aposta de uma agência. Imutável depois de criada.
type Bet struct {
	Agency    int
	Document  string
	FirstName string
	LastName  string
	Birthdate string // YYYY-MM-DD
	Number    int
}

// Predicate decide se uma aposta é vencedora. Deve ser pura e determinística.
type Predicate func(Bet) bool

// LuckyNumber retorna o predicate "vence quem apostou no número n"
func LuckyNumber(n int) Predicate {
	return func(b Bet) bool { return b.Number == n }
}

func validBirthdate(s string) bool {
	_, err := time.Parse(BirthdateLayout, s)
	return err == nil
}
