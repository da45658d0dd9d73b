// Command moodle-ws fakes the Moodle web service endpoint so approvals can
// provision users locally. It accepts any wstoken and answers the handful of
// wsfunctions the server calls.
//
//	go run . -addr :9091
//	MOODLE_SIGNUP_API_URL=http://localhost:9091/webservice/rest/server.php MOODLE_SIGNUP_API_TOKEN=mock ...
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"sync/atomic"
)

var nextID atomic.Int64

func main() {
	addr := flag.String("addr", ":9091", "listen address")
	flag.Parse()
	nextID.Store(100)

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fn := r.Form.Get("wsfunction")
		log.Printf("%s username=%s", fn, r.Form.Get("users[0][username]"))

		w.Header().Set("Content-Type", "application/json")
		switch fn {
		case "core_user_create_users":
			id := nextID.Add(1)
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"id": id, "username": r.Form.Get("users[0][username]")},
			})
		case "core_user_update_users", "core_user_delete_users",
			"enrol_manual_enrol_users", "enrol_manual_unenrol_users":
			_, _ = w.Write([]byte("null"))
		case "core_course_get_courses", "core_course_search_courses":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"id": 1, "shortname": "CURSO-1", "fullname": "Curso de prueba"},
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"exception": "invalid_parameter_exception",
				"errorcode": "invalidparameter",
				"message":   "wsfunction no soportada: " + fn,
			})
		}
	})

	log.Printf("moodle-ws mock listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, http.DefaultServeMux))
}
