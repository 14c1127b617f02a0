package test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/irsalhamdi/school-of-presence/core/course"
	"github.com/irsalhamdi/school-of-presence/core/purchase"
)

type purchaseTest struct {
	*TestEnv
}

func TestPurchase(t *testing.T) {
	env, err := NewTestEnv(t, "purchase_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	pt := &purchaseTest{env}

	c := pt.createCourseOK(t)

	if err := Login(pt.Server, pt.UserEmail, pt.UserPass); err != nil {
		t.Fatal(err)
	}

	pt.dashboardRedirects(t, c.ID, "http://site.test/courses/"+c.ID)
	pt.listOwned(t, 0)

	pt.Gateway.set("R500", mockTx{code: http.StatusInternalServerError})
	res := pt.confirm(t, c.ID, "R500")
	if res.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("gateway 500: status %d, want 402", res.StatusCode)
	}
	res.Body.Close()

	pt.Gateway.set("RLOW", mockTx{status: "success", amount: 9800})
	res = pt.confirm(t, c.ID, "RLOW")
	if res.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("short payment: status %d, want 402", res.StatusCode)
	}
	res.Body.Close()

	pt.listOwned(t, 0)

	pt.Gateway.set("R123", mockTx{status: "success", amount: 9900})
	for i := 0; i < 2; i++ {
		res := pt.confirm(t, c.ID, "R123")
		if res.StatusCode != http.StatusOK {
			t.Fatalf("attempt %d: status %d, want 200", i+1, res.StatusCode)
		}

		var out purchase.Result
		decode(t, res, &out)
		if !out.Success || out.Duplicate != (i == 1) {
			t.Fatalf("attempt %d: unexpected result %+v", i+1, out)
		}
	}

	var n int
	if err := pt.DB.Get(&n, `SELECT COUNT(*) FROM purchases WHERE payment_reference = 'R123'`); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("%d purchase rows for R123, want 1", n)
	}

	pt.listOwned(t, 1)

	res, err = pt.do(http.MethodGet, "/dashboard/courses/"+c.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dashboard after purchase: status %d, want 200", res.StatusCode)
	}

	if err := Logout(pt.Server); err != nil {
		t.Fatal(err)
	}
	pt.dashboardRedirects(t, c.ID, "http://site.test/login?next=%2Fdashboard%2Fcourses%2F"+c.ID)

	res = pt.confirm(t, c.ID, "R123")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous confirmation: status %d, want 401", res.StatusCode)
	}
	res.Body.Close()
}

func (pt *purchaseTest) createCourseOK(t *testing.T) course.Course {
	t.Helper()

	if err := Login(pt.Server, pt.AdminEmail, pt.AdminPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(pt.Server)

	cn := map[string]any{
		"title":       "Presence in 28 days",
		"description": "Speak so people listen",
		"price":       99,
		"videoUrl":    "https://videos.example.com/presence.m3u8",
		"published":   true,
	}

	res, err := pt.do(http.MethodPost, "/courses", cn)
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("creating course: status %d", res.StatusCode)
	}

	var c course.Course
	decode(t, res, &c)
	return c
}

func (pt *purchaseTest) confirm(t *testing.T, courseID, ref string) *http.Response {
	t.Helper()

	res, err := pt.do(http.MethodPost, "/purchases", map[string]string{
		"courseId":         courseID,
		"paymentReference": ref,
	})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func (pt *purchaseTest) dashboardRedirects(t *testing.T, courseID, want string) {
	t.Helper()

	res, err := pt.do(http.MethodGet, "/dashboard/courses/"+courseID, nil)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()

	if res.StatusCode != http.StatusSeeOther {
		t.Fatalf("dashboard: status %d, want 303", res.StatusCode)
	}
	if loc := res.Header.Get("Location"); !strings.EqualFold(loc, want) {
		t.Fatalf("dashboard redirected to %q, want %q", loc, want)
	}
}

func (pt *purchaseTest) listOwned(t *testing.T, want int) {
	t.Helper()

	res, err := pt.do(http.MethodGet, "/courses/owned", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("owned courses: status %d", res.StatusCode)
	}

	var cs []course.Course
	decode(t, res, &cs)
	if len(cs) != want {
		t.Fatalf("%d owned courses, want %d", len(cs), want)
	}
}
