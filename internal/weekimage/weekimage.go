// Package weekimage renders a professional's week as a PNG: availability
// windows as background bands, booked appointments as cards on top. The
// image is embedded in notification emails.
package weekimage

import (
	"bytes"
	"fmt"
	"image/color"
	"time"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/timeutil"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// canvas layout
const (
	imageWidth      = 1400
	imageHeight     = 900
	headerHeight    = 100
	leftLabelsWidth = 80
	legendWidth     = 120
	dayPaddingX     = 8
	minCardHeight   = 8.0
	cardRadius      = 6.0
	totalDays       = 7
	hourPaddingTop  = 1
	hourPaddingBot  = 1
	defaultMinHour  = 8
	defaultMaxHour  = 18
)

// colour scheme
var (
	bgColor        = color.RGBA{245, 246, 248, 255}
	textColor      = color.RGBA{80, 85, 90, 220}
	hourLabelColor = color.RGBA{110, 115, 120, 200}
	hourLineColor  = color.NRGBA{150, 150, 150, 255}
	evenDayColor   = color.NRGBA{240, 240, 240, 255}
	oddDayColor    = color.NRGBA{220, 220, 220, 255}

	windowColor       = color.NRGBA{133, 193, 85, 90}
	cardScheduled     = color.RGBA{255, 224, 130, 255}
	cardConfirmed     = color.RGBA{144, 202, 199, 255}
	cardText          = color.RGBA{20, 24, 28, 230}
	legendSampleAlpha = color.NRGBA{133, 193, 85, 160}
)

var dayNames = [totalDays]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

type hourRange struct {
	start int
	end   int
	total int
}

// Render draws the week starting at weekStart (a local Monday midnight).
// Windows are the recurring UTC availability of the professional;
// appointments are the week's active bookings. Everything is displayed in
// weekStart's location.
func Render(weekStart time.Time, windows []model.AvailabilityWindow, appointments []*model.Appointment) ([]byte, error) {
	loc := weekStart.Location()
	localWindows := projectWindows(windows, loc)
	hours := calculateHourRange(localWindows, appointments, loc)

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / totalDays
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	drawHeader(dc, weekStart, dayWidth)
	drawDays(dc, dayWidth, dayHeight)
	drawHourLabels(dc, hours, cellHeight)
	drawWindows(dc, localWindows, hours, dayWidth, cellHeight)
	drawAppointments(dc, weekStart, appointments, hours, dayWidth, cellHeight)
	drawLegend(dc)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode week image: %w", err)
	}
	return buf.Bytes(), nil
}

// localWindow is one availability band in display time
type localWindow struct {
	weekday    int
	start, end timeutil.Clock
}

func projectWindows(windows []model.AvailabilityWindow, loc *time.Location) []localWindow {
	out := make([]localWindow, 0, len(windows))
	for _, w := range windows {
		wd, start := timeutil.UTCClockToLocal(w.Weekday, w.StartUTC, loc)
		_, end := timeutil.UTCClockToLocal(w.Weekday, w.EndUTC, loc)
		out = append(out, localWindow{weekday: wd, start: start, end: end})
	}
	return out
}

func calculateHourRange(windows []localWindow, appointments []*model.Appointment, loc *time.Location) hourRange {
	minHour := 24
	maxHour := 0

	for _, w := range windows {
		if w.start.Hour < minHour {
			minHour = w.start.Hour
		}
		endH := w.end.Hour
		if w.end.Minute > 0 {
			endH++
		}
		if endH > maxHour {
			maxHour = endH
		}
	}
	for _, ap := range appointments {
		start := ap.StartsAt.In(loc)
		end := ap.EndsAt.In(loc)
		if start.Hour() < minHour {
			minHour = start.Hour()
		}
		endH := end.Hour()
		if end.Minute() > 0 {
			endH++
		}
		if endH > maxHour {
			maxHour = endH
		}
	}

	if minHour == 24 {
		minHour = defaultMinHour
		maxHour = defaultMaxHour
	}

	startHour := max(minHour-hourPaddingTop, 0)
	endHour := min(maxHour+hourPaddingBot, 23)

	return hourRange{start: startHour, end: endHour, total: endHour - startHour + 1}
}

func drawHeader(dc *gg.Context, weekStart time.Time, dayWidth int) {
	dc.SetColor(textColor)
	title := fmt.Sprintf("%s - %s",
		weekStart.Format("02 Jan 2006"),
		weekStart.AddDate(0, 0, 6).Format("02 Jan 2006"),
	)
	dc.DrawStringAnchored(title, imageWidth/2, headerHeight/4, 0.5, 0.5)

	for day := 0; day < totalDays; day++ {
		x := float64(leftLabelsWidth + day*dayWidth + dayWidth/2)
		label := fmt.Sprintf("%s %s", dayNames[day], weekStart.AddDate(0, 0, day).Format("02/01"))
		dc.DrawStringAnchored(label, x, headerHeight*3/4, 0.5, 0.5)
	}
}

func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	dc.SetColor(hourLabelColor)
	for h := hours.start; h <= hours.end; h++ {
		y := headerHeight + float64(h-hours.start)*cellHeight
		dc.DrawStringAnchored(fmt.Sprintf("%02d:00", h), leftLabelsWidth-8, y, 1, 0.5)

		dc.SetColor(hourLineColor)
		dc.SetLineWidth(0.5)
		dc.DrawLine(leftLabelsWidth, y, imageWidth-legendWidth, y)
		dc.Stroke()
		dc.SetColor(hourLabelColor)
	}
}

func drawDays(dc *gg.Context, dayWidth, dayHeight int) {
	for day := 0; day < totalDays; day++ {
		if day%2 == 0 {
			dc.SetColor(evenDayColor)
		} else {
			dc.SetColor(oddDayColor)
		}
		x := float64(leftLabelsWidth + day*dayWidth)
		dc.DrawRectangle(x, headerHeight, float64(dayWidth), float64(dayHeight))
		dc.Fill()
	}
}

func drawWindows(dc *gg.Context, windows []localWindow, hours hourRange, dayWidth int, cellHeight float64) {
	dc.SetColor(windowColor)
	for _, w := range windows {
		x := float64(leftLabelsWidth + w.weekday*dayWidth + dayPaddingX)
		y := headerHeight + minutesY(w.start.Minutes(), hours, cellHeight)
		h := minutesY(w.end.Minutes(), hours, cellHeight) - minutesY(w.start.Minutes(), hours, cellHeight)
		dc.DrawRectangle(x, y, float64(dayWidth-2*dayPaddingX), h)
		dc.Fill()
	}
}

func drawAppointments(dc *gg.Context, weekStart time.Time, appointments []*model.Appointment, hours hourRange, dayWidth int, cellHeight float64) {
	loc := weekStart.Location()
	for _, ap := range appointments {
		if !ap.IsActive() {
			continue
		}
		start := ap.StartsAt.In(loc)
		day := int(start.Sub(weekStart).Hours() / 24)
		if day < 0 || day >= totalDays {
			continue
		}

		startMin := start.Hour()*60 + start.Minute()
		end := ap.EndsAt.In(loc)
		endMin := end.Hour()*60 + end.Minute()
		if endMin <= startMin {
			endMin = startMin + 30
		}

		x := float64(leftLabelsWidth + day*dayWidth + dayPaddingX)
		y := headerHeight + minutesY(startMin, hours, cellHeight)
		h := max(minutesY(endMin, hours, cellHeight)-minutesY(startMin, hours, cellHeight), minCardHeight)

		if ap.Status == model.AppointmentConfirmed {
			dc.SetColor(cardConfirmed)
		} else {
			dc.SetColor(cardScheduled)
		}
		dc.DrawRoundedRectangle(x, y, float64(dayWidth-2*dayPaddingX), h, cardRadius)
		dc.Fill()

		dc.SetColor(cardText)
		label := start.Format("15:04")
		if ap.Student != nil {
			label += " " + ap.Student.Name
		}
		dc.DrawStringAnchored(label, x+float64(dayWidth-2*dayPaddingX)/2, y+h/2, 0.5, 0.5)
	}
}

func drawLegend(dc *gg.Context) {
	entries := []struct {
		c color.Color
		s string
	}{
		{legendSampleAlpha, "available"},
		{cardScheduled, "scheduled"},
		{cardConfirmed, "confirmed"},
	}

	x := float64(imageWidth - legendWidth + 10)
	y := float64(headerHeight + 20)
	for _, e := range entries {
		dc.SetColor(e.c)
		dc.DrawRoundedRectangle(x, y, 18, 12, 3)
		dc.Fill()
		dc.SetColor(textColor)
		dc.DrawStringAnchored(e.s, x+26, y+6, 0, 0.5)
		y += 24
	}
}

// minutesY maps minutes-of-day to a vertical offset inside the grid
func minutesY(minutes int, hours hourRange, cellHeight float64) float64 {
	return (float64(minutes)/60 - float64(hours.start)) * cellHeight
}
