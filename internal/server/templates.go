package server

import "html/template"

var dashboardTemplate = template.Must(template.New("dashboard.html").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Weather Dashboard</title>
{{if or .Forecast.Pending .Summary.Pending}}<meta http-equiv="refresh" content="2">{{end}}
<style>
body { font-family: sans-serif; margin: 2rem; }
.cards { display: flex; gap: 1rem; flex-wrap: wrap; }
.card { border: 1px solid #ccc; border-radius: 6px; padding: .75rem; min-width: 9rem; }
.loading { color: #888; font-style: italic; }
</style>
</head>
<body>
<h1>{{if .Location}}Weather for {{.PlaceName}}{{else}}Weather Dashboard{{end}}</h1>

<form id="search">
  <input name="query" placeholder="Search for a place">
  <button type="submit">Search</button>
</form>

<section id="map">
  <h2>Map</h2>
  <p>Center {{.Map.Viewport.Center}} at zoom {{.Map.Viewport.Zoom}} ({{.Map.MinZoom}}-{{.Map.MaxZoom}})</p>
  {{if .Map.MarkerTile}}
  <img src="{{.Map.MarkerTile.URL .Map.TileURL}}" alt="Map tile at {{.Map.Marker}}" width="256" height="256">
  <p>Marker at {{.Map.Marker}}</p>
  {{else}}
  <p class="loading">Click the map or search to choose a location.</p>
  {{end}}
  <form id="click">
    <input name="lat" type="number" step="any" placeholder="Latitude">
    <input name="lng" type="number" step="any" placeholder="Longitude">
    <button type="submit">Select</button>
  </form>
</section>

<section id="forecast">
  <h2>7-Day Forecast</h2>
  {{if .Forecast.Loading}}
  <p class="loading">Loading forecast...</p>
  {{else}}
  <div class="cards">
    {{range .Forecast.Cards}}
    <div class="card">
      <strong>{{.Date}}</strong>
      <div class="icon icon-{{.Icon}}">{{.Glyph}}</div>
      <div>{{.Temperature}}</div>
      <div>{{.Energy}}</div>
    </div>
    {{end}}
  </div>
  {{end}}
</section>

<section id="summary">
  <h2>Weekly Summary</h2>
  {{if .Summary.Loading}}
  <p class="loading">Loading summary...</p>
  {{else}}
  <ul>{{range .Summary.Lines}}<li>{{.}}</li>{{end}}</ul>
  {{end}}
</section>

<script>
function post(path, body) {
  return fetch(path, {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(body)})
    .then(function () { window.location.reload(); });
}
document.getElementById("search").addEventListener("submit", function (e) {
  e.preventDefault();
  post("/api/search", {query: e.target.query.value});
});
document.getElementById("click").addEventListener("submit", function (e) {
  e.preventDefault();
  post("/api/location", {lat: parseFloat(e.target.lat.value), lng: parseFloat(e.target.lng.value)});
});
</script>
</body>
</html>
`))
