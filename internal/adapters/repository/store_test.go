package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scout/internal/domain/account"
	"github.com/okian/scout/internal/domain/prospect"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%02d", n)
	}
}

func TestMemStoreProspects(t *testing.T) {
	Convey("Given a store with twelve prospects", t, func() {
		ctx := context.Background()
		s := NewMemStore(WithIDFunc(seqIDs()))
		for i := range 12 {
			p := prospect.Prospect{Name: fmt.Sprintf("Player %02d", i+1), Position: prospect.Defensa, Status: prospect.Libre}
			if i%3 == 0 {
				p.Position = prospect.Delantero
				p.Club = "Norte"
			}
			if i%4 == 0 {
				p.Status = prospect.Observado
				p.OvrGeneral = 60 + i
			}
			_, err := s.Create(ctx, p)
			So(err, ShouldBeNil)
		}

		Convey("When listing the second page", func() {
			page, err := s.List(ctx, prospect.Filters{Page: 2, Limit: 5})

			Convey("Then pagination is computed and rows are newest first", func() {
				So(err, ShouldBeNil)
				So(page.Pagination, ShouldResemble, prospect.Pagination{Page: 2, Limit: 5, Total: 12, TotalPages: 3})
				So(page.Data, ShouldHaveLength, 5)
				So(page.Data[0].SessionID, ShouldEqual, "id-07")
			})
		})

		Convey("When filtering", func() {
			byPos, _ := s.List(ctx, prospect.Filters{Page: 1, Limit: 10, Position: prospect.Delantero})
			bySearch, _ := s.List(ctx, prospect.Filters{Page: 1, Limit: 10, Search: "player 1"})
			byClub, _ := s.List(ctx, prospect.Filters{Page: 1, Limit: 10, Extra: map[string]string{"club": "norte"}})
			beyond, _ := s.List(ctx, prospect.Filters{Page: 9, Limit: 10})

			Convey("Then each filter narrows the result", func() {
				So(byPos.Pagination.Total, ShouldEqual, 4)
				So(bySearch.Pagination.Total, ShouldEqual, 3) // 10, 11, 12
				So(byClub.Pagination.Total, ShouldEqual, 4)
				So(beyond.Data, ShouldBeEmpty)
			})
		})

		Convey("When the limit is out of range", func() {
			_, err := s.List(ctx, prospect.Filters{Page: 1, Limit: 0})
			So(errors.Is(err, ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("When updating and deleting", func() {
			updated, err := s.Update(ctx, "id-03", func(p *prospect.Prospect) {
				p.Status = prospect.Contratado
				p.SessionID = "hijack"
			})
			So(err, ShouldBeNil)
			So(updated.SessionID, ShouldEqual, "id-03")
			So(updated.Status, ShouldEqual, prospect.Contratado)

			So(s.Delete(ctx, "id-03"), ShouldBeNil)
			_, err = s.Get(ctx, "id-03")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			So(errors.Is(s.Delete(ctx, "id-03"), ErrNotFound), ShouldBeTrue)
		})

		Convey("When computing metrics", func() {
			m, err := s.Metrics(ctx)

			Convey("Then counts and the rated average are returned", func() {
				So(err, ShouldBeNil)
				So(m.Total, ShouldEqual, 12)
				So(m.ByPosition["Delantero"], ShouldEqual, 4)
				So(m.ByStatus["Observado"], ShouldEqual, 3)
				So(m.AverageOvr, ShouldEqual, float64(60+64+68)/3)
			})
		})
	})
}

func TestMemStoreUsers(t *testing.T) {
	Convey("Given a store with one user", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		s := NewMemStore(WithIDFunc(seqIDs()), WithClock(func() time.Time { return now }))
		u, err := s.CreateUser(ctx, account.User{Email: "Scout@Example.com", Name: "Scout"}, []byte("hash"))
		So(err, ShouldBeNil)

		Convey("Then emails are unique and case-insensitive", func() {
			_, err := s.CreateUser(ctx, account.User{Email: "scout@example.com"}, nil)
			So(errors.Is(err, ErrConflict), ShouldBeTrue)
			found, hash, err := s.UserByEmail(ctx, "SCOUT@example.com")
			So(err, ShouldBeNil)
			So(found.ID, ShouldEqual, u.ID)
			So(string(hash), ShouldEqual, "hash")
		})

		Convey("Then profile updates keep id and email", func() {
			out, err := s.UpdateUser(ctx, u.ID, func(x *account.User) {
				x.Name = "Head Scout"
				x.Email = "other@example.com"
			})
			So(err, ShouldBeNil)
			So(out.Name, ShouldEqual, "Head Scout")
			So(out.Email, ShouldEqual, "scout@example.com")
		})

		Convey("Then refresh tokens work once and expire", func() {
			So(s.SaveRefresh(ctx, "r1", u.ID, now.Add(time.Hour)), ShouldBeNil)
			So(s.SaveRefresh(ctx, "r2", u.ID, now.Add(-time.Second)), ShouldBeNil)
			owner, err := s.ConsumeRefresh(ctx, "r1")
			So(err, ShouldBeNil)
			So(owner, ShouldEqual, u.ID)
			_, err = s.ConsumeRefresh(ctx, "r1")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			_, err = s.ConsumeRefresh(ctx, "r2")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("Then revoking drops every token of the user", func() {
			So(s.SaveRefresh(ctx, "r3", u.ID, now.Add(time.Hour)), ShouldBeNil)
			So(s.RevokeUser(ctx, u.ID), ShouldBeNil)
			_, err := s.ConsumeRefresh(ctx, "r3")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})
}
