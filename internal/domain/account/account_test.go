package account

import (
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAccountValidation(t *testing.T) {
	Convey("Given login credentials", t, func() {
		So(Credentials{Email: "scout@example.com", Password: "secret1"}.Validate(), ShouldBeNil)
		So(errors.Is(Credentials{Email: "nope", Password: "secret1"}.Validate(), ErrInvalid), ShouldBeTrue)
		So(Credentials{Email: "scout@example.com", Password: "123"}.Validate(), ShouldNotBeNil)
	})

	Convey("Given password changes", t, func() {
		So(PasswordChange{CurrentPassword: "secret1", NewPassword: "secret2"}.Validate(), ShouldBeNil)
		So(PasswordChange{CurrentPassword: "secret1", NewPassword: "secret1"}.Validate(), ShouldNotBeNil)
	})

	Convey("Given profile updates", t, func() {
		So(ProfileUpdate{}.Validate(), ShouldBeNil)
		So(ProfileUpdate{AvatarURL: "not a url"}.Validate(), ShouldNotBeNil)
	})
}

func TestSessionPayload(t *testing.T) {
	Convey("Given a login answer", t, func() {
		var s Session
		raw := `{"user":{"id":"u-1","email":"scout@example.com","name":"Scout"},"token":"t","refreshToken":"r"}`
		So(json.Unmarshal([]byte(raw), &s), ShouldBeNil)

		Convey("Then the tokens decode flat beside the user", func() {
			So(s.User.ID, ShouldEqual, "u-1")
			So(s.Token, ShouldEqual, "t")
			So(s.RefreshToken, ShouldEqual, "r")
		})
	})
}
