package tracker

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Render: 今日の記録を表で出す。未退勤は "-"
func (t *Tracker) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tName\tCheck In\tCheck Out\tStatus")
	for _, r := range t.Today() {
		checkOut := "-"
		if r.CheckOut != nil {
			checkOut = *r.CheckOut
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.EmployeeID, r.EmployeeName, r.CheckIn, checkOut, r.Status)
	}
	return tw.Flush()
}
