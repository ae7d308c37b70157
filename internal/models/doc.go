// Package models defines the entities served by the homeboard dashboard.
//
// The package contains two categories of types:
//
// 1. Widget payloads: normalized shapes returned by provider clients
//   - [CalendarEvent], [Calendar] : merged Google Calendar data
//   - [Weather], [ForecastDay] : OpenWeather current conditions and forecast
//   - [HAEntity], [HAArea] : Home Assistant states and areas
//   - [Playback], [Device] : Spotify player state
//   - [MealieRecipe], [MealieMealPlanEntry] : Mealie data
//   - [Game] : ESPN schedule entries
//   - [PickerSession], [PickerMediaItem], [PickerMedia], [SyncState] : Google Photos Picker state
//
// 2. Local content: records stored as whole JSON documents in a storage backend
//   - [Recipe] : household recipes
//   - [MealPlanEntry] : a recipe assigned to a date and meal
//   - [ShoppingListItem] : shopping list lines
//   - [SystemConfig], [HAConfig] : display and smart-home settings
//
// Local content records implement [Model]; [Repository] defines CRUD for them.
package models
