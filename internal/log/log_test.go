package log

import (
	"testing"

	"github.com/jscyril/tinyplayer/internal/config"
	"github.com/jscyril/tinyplayer/internal/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSetup(t *testing.T) {
	Convey("Given an in-memory filesystem", t, func() {
		filesystem.SetMemMapFs()

		Convey("No file disables logging", func() {
			closer, err := Setup(config.Logs{Level: "debug"})
			So(err, ShouldBeNil)
			So(closer, ShouldNotBeNil)
			So(enabled, ShouldBeFalse)
		})

		Convey("A file receives entries at or above the level", func() {
			closer, err := Setup(config.Logs{File: "/logs/tinyplayer.log", Level: "warn"})
			So(err, ShouldBeNil)
			So(enabled, ShouldBeTrue)

			Infof("hidden %d", 1)
			Warnf("shown %d", 2)
			WithFields(Fields{"track": "a.mp3"}).Error("boom")
			So(closer.Close(), ShouldBeNil)

			data, err := filesystem.API().ReadFile("/logs/tinyplayer.log")
			So(err, ShouldBeNil)
			So(string(data), ShouldNotContainSubstring, "hidden 1")
			So(string(data), ShouldContainSubstring, "shown 2")
			So(string(data), ShouldContainSubstring, "track=a.mp3")
		})

		Convey("An unknown level falls back to info", func() {
			_, err := Setup(config.Logs{File: "/logs/x.log", Level: "loud"})
			So(err, ShouldBeNil)
			So(logger.GetLevel().String(), ShouldEqual, "info")
		})

		Reset(func() {
			_, _ = Setup(config.Logs{})
			filesystem.SetOsFs()
		})
	})
}
