package tags_test

import (
	"testing"

	"github.com/okian/skillmatch/internal/domain/tags"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFlatten(t *testing.T) {
	Convey("Given a raw expansion response", t, func() {
		raw := []string{"chords", "scales, strumming", " ", "Theory ,, , ear training", "chords"}

		Convey("When it is flattened", func() {
			out := tags.Flatten(raw)

			Convey("Then every element is atomic, trimmed and non-empty", func() {
				So(out, ShouldResemble, []string{"chords", "scales", "strumming", "theory", "ear training"})
				for _, tag := range out {
					So(tag, ShouldNotContainSubstring, ",")
					So(tag, ShouldNotBeBlank)
				}
			})

			Convey("And flattening again changes nothing", func() {
				So(tags.Flatten(out), ShouldResemble, out)
			})
		})
	})

	Convey("Given an empty response", t, func() {
		Convey("Then flattening yields an empty, non-nil slice", func() {
			out := tags.Flatten(nil)
			So(out, ShouldNotBeNil)
			So(out, ShouldBeEmpty)
		})
	})
}

func TestClean(t *testing.T) {
	Convey("Given keywords with blanks and duplicates", t, func() {
		in := []string{" Go ", "", "go", "Rust", "  "}

		Convey("Then Clean trims, drops blanks and keeps the first spelling", func() {
			So(tags.Clean(in), ShouldResemble, []string{"Go", "Rust"})
		})
	})
}

func TestSetShared(t *testing.T) {
	Convey("Given an expanded keyword set", t, func() {
		set := tags.NewSet([]string{"chords", "Scales", "strumming"})

		Convey("When intersecting with a candidate's tags", func() {
			shared := set.Shared([]string{"scales", "theory", "chords", "scales"})

			Convey("Then shared tags are listed once in candidate order", func() {
				So(shared, ShouldResemble, []string{"scales", "chords"})
			})
		})

		Convey("When there is no overlap", func() {
			Convey("Then the result is empty", func() {
				So(set.Shared([]string{"theory"}), ShouldBeEmpty)
			})
		})

		Convey("Then membership ignores case and padding", func() {
			So(set.Has(" SCALES "), ShouldBeTrue)
			So(set.Has("theory"), ShouldBeFalse)
			So(len(set.Keys()), ShouldEqual, 3)
		})
	})
}
