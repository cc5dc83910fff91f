package coach

import (
	"fmt"
	"net/http"

	"cruddemo/modules/api/serde"
)

// DemoAPI serves the injected coaches.
type DemoAPI struct {
	myCoach      Coach
	anotherCoach Coach
}

func NewDemoAPI(myCoach, anotherCoach Coach) *DemoAPI {
	return &DemoAPI{myCoach: myCoach, anotherCoach: anotherCoach}
}

func (d *DemoAPI) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /dailyworkout", d.DailyWorkout)
	mux.HandleFunc("GET /check", d.Check)
}

func (d *DemoAPI) Middlewares() []func(http.Handler) http.Handler {
	return nil
}

func (d *DemoAPI) DailyWorkout(w http.ResponseWriter, _ *http.Request) {
	serde.WriteText(w, http.StatusOK, d.myCoach.DailyWorkout())
}

// Check reports whether both coaches are the same instance.
func (d *DemoAPI) Check(w http.ResponseWriter, _ *http.Request) {
	serde.WriteText(w, http.StatusOK, fmt.Sprintf("Comparing beans: myCoach == anotherCoach %t", d.myCoach == d.anotherCoach))
}
