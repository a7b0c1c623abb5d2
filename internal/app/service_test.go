package service_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"

	service "github.com/okian/authclient/internal/app"
	"github.com/okian/authclient/internal/adapters/http/stub"
)

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should report itself stopped", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["addr"], ShouldEqual, ":8080")

			_, err := svc.Addr()
			So(err, ShouldEqual, service.ErrNotStarted)
			_, err = svc.Stub()
			So(err, ShouldEqual, service.ErrNotStarted)
		})

		Convey("Then stopping it is a no-op", func() {
			So(svc.Stop(context.Background()), ShouldBeNil)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service on a free port", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithAddr("127.0.0.1:0"),
			service.WithSessionGaugeInterval(10*time.Millisecond),
			service.WithStubOptions(
				stub.WithBcryptCost(bcrypt.MinCost),
				stub.WithCaptchaEnabled(false),
			),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		addr, err := svc.Addr()
		So(err, ShouldBeNil)
		base := "http://" + addr

		Convey("Starting twice is harmless", func() {
			So(svc.Start(ctx), ShouldBeNil)
		})

		Convey("The health endpoint answers", func() {
			resp, err := http.Get(base + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var body map[string]any
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
			So(body["status"], ShouldEqual, "ok")
		})

		Convey("The API docs are mounted", func() {
			resp, err := http.Get(base + "/openapi.yaml")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			b, err := io.ReadAll(resp.Body)
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, "/auth/login")
		})

		Convey("Stats include the bound address and sessions", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["addr"], ShouldEqual, addr)
			So(stats["activeSessions"], ShouldEqual, 0)
		})

		Convey("After Stop the listener is closed", func() {
			So(svc.Stop(ctx), ShouldBeNil)
			_, err := http.Get(base + "/healthz")
			So(err, ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}
