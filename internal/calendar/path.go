package calendar

import (
	"fmt"
	"path"
	"path/filepath"
	"time"
)

// ObjectKey is the slash-separated location of a calendar, without the .ics
// extension:
//
//	monthly: <year>/<Month>/<Emirate>/<City>/<Month><year>
//	daily:   <year>/<Month>/<Emirate>/<City>/<DD>/prayer-times-<DD><Month>
func ObjectKey(year, month int, emirate, city string, day int) string {
	monthName := time.Month(month).String()
	base := path.Join(fmt.Sprint(year), monthName, emirate, city)
	if day == 0 {
		return path.Join(base, fmt.Sprintf("%s%d", monthName, year))
	}
	dd := fmt.Sprintf("%02d", day)
	return path.Join(base, dd, fmt.Sprintf("prayer-times-%s%s", dd, monthName))
}

// OutputPath returns the file path of a calendar under root.
func OutputPath(root string, year, month int, emirate, city string, day int) string {
	return filepath.Join(root, filepath.FromSlash(ObjectKey(year, month, emirate, city, day))+".ics")
}
