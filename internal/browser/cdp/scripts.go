package cdp

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/visa-autofill/internal/browser/dom"
)

// BindingName is the page binding the observer script reports triggers through.
const BindingName = "autofillTrigger"

// StatusElementID is the id of the transient status banner.
const StatusElementID = "autofill-status"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// snapshotScript serializes a clone of the document with live control state
// copied into attributes, so the page itself is never touched. Elements with
// an empty bounding box are marked.
const snapshotScript = `(() => {
	const live = document.documentElement;
	const clone = live.cloneNode(true);
	const src = live.querySelectorAll('*');
	const dst = clone.querySelectorAll('*');
	for (let i = 0; i < src.length && i < dst.length; i++) {
		const s = src[i], d = dst[i];
		if (s instanceof HTMLInputElement) {
			if (s.type === 'checkbox' || s.type === 'radio') {
				if (s.checked) d.setAttribute('checked', 'checked'); else d.removeAttribute('checked');
			} else if (s.type !== 'file' && s.type !== 'password') {
				d.setAttribute('value', s.value);
			}
		} else if (s instanceof HTMLTextAreaElement) {
			d.textContent = s.value;
		} else if (s instanceof HTMLOptionElement) {
			if (s.selected) d.setAttribute('selected', 'selected'); else d.removeAttribute('selected');
			continue;
		} else if (s instanceof HTMLOptGroupElement) {
			continue;
		}
		if (s instanceof HTMLElement && s.closest('head') === null) {
			const r = s.getBoundingClientRect();
			if (r.width === 0 && r.height === 0) d.setAttribute('data-autofill-hidden', '');
		}
	}
	const banner = clone.querySelector('#` + StatusElementID + `');
	if (banner) banner.remove();
	return '<!DOCTYPE html>' + clone.outerHTML;
})()`

// observerScript reports fill triggers through the binding. It is installed on
// every new document and once on the current one.
const observerScript = `(() => {
	window.__autofillStopped = false;
	if (window.__autofillInstalled) return;
	window.__autofillInstalled = true;
	const fire = (t) => {
		if (window.__autofillStopped) return;
		try { window.` + BindingName + `(t); } catch (e) {}
	};
	const controls = 'input,select,textarea,legend,fieldset,label,[data-question]';
	const interesting = (n) => {
		if (n.nodeType !== 1 || n.id === '` + StatusElementID + `') return false;
		if (n.matches(controls) || n.querySelector(controls)) return true;
		return /question/i.test(n.getAttribute('class') || '') || n.querySelector('[class*="question" i]') !== null;
	};
	const observe = () => {
		const obs = new MutationObserver((records) => {
			for (const r of records) {
				for (const n of r.addedNodes) {
					if (interesting(n)) { fire('mutation'); return; }
				}
			}
		});
		obs.observe(document.body, { childList: true, subtree: true });
		window.__autofillObserver = obs;
	};
	if (document.body) observe(); else document.addEventListener('DOMContentLoaded', observe, { once: true });
	document.addEventListener('DOMContentLoaded', () => fire('dom-content-loaded'));
	window.addEventListener('load', () => fire('load'));
	if (document.readyState !== 'loading') fire('ready-state');
	document.addEventListener('irccAutofill', (e) => {
		if (e.detail && e.detail.trigger) fire('manual');
	});
})()`

const stopObserverScript = `(() => {
	window.__autofillStopped = true;
	window.__autofillInstalled = false;
	if (window.__autofillObserver) window.__autofillObserver.disconnect();
})()`

// applyScriptTemplate replays one action. It returns false when the XPath
// selects nothing.
const applyScriptTemplate = `((a) => {
	const el = document.evaluate(a.xpath, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!el) return false;
	switch (a.kind) {
	case 'set-value': {
		const proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
		const desc = Object.getOwnPropertyDescriptor(proto, 'value');
		if (desc && desc.set) desc.set.call(el, a.value); else el.value = a.value;
		break;
	}
	case 'select':
		el.selectedIndex = a.index;
		break;
	case 'set-checked':
		el.checked = a.checked;
		break;
	case 'dispatch':
		el.dispatchEvent(new Event(a.event, { bubbles: true }));
		break;
	case 'scroll-into-view':
		el.scrollIntoView({ block: 'center' });
		break;
	case 'click':
		el.click();
		break;
	}
	return true;
})(%s)`

const statusScriptTemplate = `((msg, ms) => {
	let el = document.getElementById('` + StatusElementID + `');
	if (!el) {
		el = document.createElement('div');
		el.id = '` + StatusElementID + `';
		el.setAttribute('role', 'status');
		el.style.cssText = 'position:fixed;top:16px;right:16px;z-index:2147483647;padding:10px 14px;' +
			'background:#26374a;color:#fff;font:14px sans-serif;border-radius:4px;box-shadow:0 2px 6px rgba(0,0,0,.3)';
		(document.body || document.documentElement).appendChild(el);
	}
	el.textContent = msg;
	clearTimeout(window.__autofillStatusTimer);
	window.__autofillStatusTimer = setTimeout(() => el.remove(), ms);
})(%s, %d)`

func applyScript(a dom.Action) (string, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to encode action: %w", err)
	}
	return fmt.Sprintf(applyScriptTemplate, payload), nil
}

func statusScript(msg string, d time.Duration) string {
	return fmt.Sprintf(statusScriptTemplate, jsonEncode(msg), d.Milliseconds())
}

func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
