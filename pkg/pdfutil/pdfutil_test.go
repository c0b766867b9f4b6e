package pdfutil_test

import (
	"testing"

	"github.com/ksicht/ksicht/pkg/pdfutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExportLabel(t *testing.T) {
	Convey("Given solver details", t, func() {
		Convey("Then a full label joins all parts", func() {
			label := pdfutil.ExportLabel("Jana Novakova", "Gymnazium Brno", "Task 3: Esters")
			So(label, ShouldEqual, "Jana Novakova | Gymnazium Brno | Task 3: Esters")
		})

		Convey("Then empty parts are skipped", func() {
			So(pdfutil.ExportLabel("Jana Novakova", "", "Task 3"), ShouldEqual, "Jana Novakova | Task 3")
			So(pdfutil.ExportLabel("", "", ""), ShouldEqual, "")
		})
	})
}

func TestDuplexPadPages(t *testing.T) {
	Convey("Given page counts", t, func() {
		Convey("Then even counts need no padding", func() {
			So(pdfutil.DuplexPadPages(2), ShouldBeNil)
			So(pdfutil.DuplexPadPages(10), ShouldBeNil)
		})

		Convey("Then odd counts pad after the last page", func() {
			So(pdfutil.DuplexPadPages(1), ShouldResemble, []string{"1"})
			So(pdfutil.DuplexPadPages(7), ShouldResemble, []string{"7"})
		})

		Convey("Then nonsense counts are ignored", func() {
			So(pdfutil.DuplexPadPages(0), ShouldBeNil)
			So(pdfutil.DuplexPadPages(-3), ShouldBeNil)
		})
	})
}
