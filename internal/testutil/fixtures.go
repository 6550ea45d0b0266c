package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TipsCSV is a slice of the restaurant tips dataset. Row 11 repeats row 2
// and row 12 has no tip.
const TipsCSV = `total_bill,tip,sex,smoker,day,time,size
16.99,1.01,Female,No,Sun,Dinner,2
10.34,1.66,Male,No,Sun,Dinner,3
21.01,3.5,Male,No,Sun,Dinner,3
23.68,3.31,Male,No,Sun,Dinner,2
24.59,3.61,Female,No,Sun,Dinner,4
25.29,4.71,Male,No,Sun,Dinner,4
8.77,2.0,Male,No,Sun,Dinner,2
26.88,3.12,Male,No,Sun,Dinner,4
15.04,1.96,Male,No,Sun,Dinner,2
14.78,3.23,Male,No,Sun,Dinner,2
10.34,1.66,Male,No,Sun,Dinner,3
12.0,,Female,Yes,Sat,Lunch,2
`

// TipsColumns are the column names of TipsCSV.
var TipsColumns = []string{"total_bill", "tip", "sex", "smoker", "day", "time", "size"}

// WriteFile writes content to name inside a fresh temporary directory and
// returns the file path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// WriteTips writes TipsCSV to a temporary tips.csv and returns its path.
func WriteTips(t testing.TB) string {
	t.Helper()
	return WriteFile(t, "tips.csv", TipsCSV)
}
