package mockapi

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/okian/scout/internal/domain/account"
	"github.com/okian/scout/internal/domain/prospect"
)

// Demo account credentials loaded by SeedDemo.
const (
	DemoEmail    = "scout@example.com"
	DemoPassword = "scout123"
)

// CreateAccount stores a user with a bcrypt hash of password.
func CreateAccount(ctx context.Context, store Store, u account.User, password string) (account.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return account.User{}, fmt.Errorf("hash password: %w", err)
	}
	return store.CreateUser(ctx, u, hash)
}

var demoNames = []string{ //nolint:gochecknoglobals // fixture data
	"Lucía Torres", "Mateo Rojas", "Valentina Díaz", "Santiago Muñoz", "Isidora Soto",
	"Benjamín Castro", "Agustina Vera", "Tomás Fuentes", "Florencia Reyes", "Vicente Morales",
	"Antonia Herrera", "Joaquín Pizarro", "Martina Silva", "Maximiliano León", "Catalina Núñez",
	"Cristóbal Araya", "Emilia Contreras", "Gaspar Tapia", "Josefa Carrasco", "Lucas Espinoza",
	"Renata Sepúlveda", "Facundo Gallardo", "Trinidad Orellana", "Bastián Valenzuela",
}

var demoClubs = []string{"Club Norte", "Deportivo Sur", "Atlético Costa", ""} //nolint:gochecknoglobals // fixture data

// SeedDemo loads the demo account and a deterministic set of prospects.
func SeedDemo(ctx context.Context, store Store) error {
	if _, err := CreateAccount(ctx, store, account.User{Email: DemoEmail, Name: "Demo Scout", Role: "scout"}, DemoPassword); err != nil {
		return err
	}
	for i, name := range demoNames {
		position := prospect.Positions[i%(len(prospect.Positions)-1)]
		if i%7 == 6 {
			position = prospect.Portera
		}
		base := 55 + (i*7)%40
		p := prospect.Prospect{
			Name:        name,
			YearOfBirth: 2004 + i%6,
			Position:    position,
			Club:        demoClubs[i%len(demoClubs)],
			Talla:       1.62 + float64(i%9)*0.03,
			Status:      prospect.Statuses[i%len(prospect.Statuses)],
			Ratings: prospect.Ratings{
				OvrGeneral:      base,
				OvrFisico:       min(base+3, 100),
				OvrTecnico:      max(base-4, 0),
				OverCompetencia: base,
				Velocidad:       40 + (i*11)%60,
				Agilidad:        45 + (i*5)%55,
			},
			FullAccess: i%5 == 0,
		}
		if i%4 == 3 {
			// Unrated newcomer.
			p.Ratings = prospect.Ratings{}
		}
		if _, err := store.Create(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
