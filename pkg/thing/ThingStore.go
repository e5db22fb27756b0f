package thing

import "sync"

// ThingStore is an in-memory store of Thing Description documents of one account
type ThingStore struct {
	// Account whose TD's are held here
	accountID string

	// tdMap is a map of TD documents by Thing ID
	tdMap map[string]*ThingTD

	// tdMapMutex for safe concurrent access to the TD store
	tdMapMutex sync.RWMutex

	// listeners are notified after a TD is added, updated or removed
	listeners []func(td *ThingTD)
}

// AddTD adds or replaces the store with the provided TD
func (ts *ThingStore) AddTD(td *ThingTD) {
	ts.Update(td)
}

// GetByID returns the TD of the Thing with the given id, or nil if not found
func (ts *ThingStore) GetByID(thingID string) *ThingTD {
	ts.tdMapMutex.RLock()
	defer ts.tdMapMutex.RUnlock()
	td := ts.tdMap[thingID]
	return td
}

// GetIDs returns the list of thing IDs held in this store
func (ts *ThingStore) GetIDs() []string {
	ts.tdMapMutex.RLock()
	defer ts.tdMapMutex.RUnlock()
	idList := make([]string, 0, len(ts.tdMap))
	for key := range ts.tdMap {
		idList = append(idList, key)
	}
	return idList
}

// Len returns the number of TDs in the store
func (ts *ThingStore) Len() int {
	ts.tdMapMutex.RLock()
	defer ts.tdMapMutex.RUnlock()
	return len(ts.tdMap)
}

// OnUpdate registers a listener that is notified after each TD update.
// Intended for the presentation layer to observe directory changes.
func (ts *ThingStore) OnUpdate(listener func(td *ThingTD)) {
	ts.tdMapMutex.Lock()
	defer ts.tdMapMutex.Unlock()
	ts.listeners = append(ts.listeners, listener)
}

// Remove the TD with the given thing ID from the store
func (ts *ThingStore) Remove(thingID string) {
	ts.tdMapMutex.Lock()
	td, found := ts.tdMap[thingID]
	delete(ts.tdMap, thingID)
	listeners := ts.listeners
	ts.tdMapMutex.Unlock()

	if found {
		for _, listener := range listeners {
			listener(td)
		}
	}
}

// Update adds or replaces a discovered ThingTD in the collection.
// This fills in the zone, publisher, device ID and device type parts of the TD
// from its thing ID for ease of presentation.
// @param td with the TD to update. This can be modified
func (ts *ThingStore) Update(td *ThingTD) {
	zone, publisherID, deviceID, deviceType := SplitThingID(td.ID)
	td.Zone = zone
	td.Publisher = publisherID
	td.DeviceID = deviceID
	td.DeviceType = string(deviceType)

	ts.tdMapMutex.Lock()
	ts.tdMap[td.ID] = td
	listeners := ts.listeners
	ts.tdMapMutex.Unlock()

	for _, listener := range listeners {
		listener(td)
	}
}

// NewThingStore creates a new instance of the TD store for the given account
func NewThingStore(accountID string) *ThingStore {
	ts := &ThingStore{
		accountID: accountID,
		tdMap:     make(map[string]*ThingTD),
	}
	return ts
}
