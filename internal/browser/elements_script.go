package browser

// clickableElementsScript enumerates visible interactable elements in document
// order of priority tags. Called with a negative index it returns the list of
// {tag, text}; with an index >= 0 it clicks that element of the same
// enumeration and returns {clicked: true} or {error}.
const clickableElementsScript = `(index) => {
	const priorityTags = ['a', 'button', 'input', 'select', 'textarea'];
	const seen = new Set();
	const found = [];

	const isVisible = (el) => {
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return rect.width > 0 &&
			rect.height > 0 &&
			style.display !== 'none' &&
			style.visibility !== 'hidden' &&
			style.opacity !== '0';
	};

	const isClickable = (el) => {
		const tag = el.tagName.toLowerCase();
		const role = el.getAttribute('role');
		return priorityTags.includes(tag) ||
			el.onclick !== null ||
			role === 'button' ||
			role === 'link' ||
			role === 'tab' ||
			role === 'menuitem' ||
			window.getComputedStyle(el).cursor === 'pointer';
	};

	const label = (el) => {
		let txt = '';
		if (el.value) {
			txt = el.value;
		} else if (el.innerText && el.innerText.trim()) {
			txt = el.innerText;
		} else if (el.getAttribute('aria-label')) {
			txt = el.getAttribute('aria-label');
		} else if (el.placeholder) {
			txt = el.placeholder;
		}
		txt = txt.replace(/\s+/g, ' ').trim();
		if (txt.length > 200) {
			txt = txt.substring(0, 200) + '...';
		}
		return txt;
	};

	for (const el of document.querySelectorAll('*')) {
		if (seen.has(el) || !isClickable(el) || !isVisible(el)) continue;
		if (el.parentElement && seen.has(el.parentElement) && !priorityTags.includes(el.tagName.toLowerCase())) continue;
		seen.add(el);
		found.push(el);
	}

	if (index < 0) {
		return found.map((el) => ({ tag: el.tagName.toLowerCase(), text: label(el) }));
	}

	const target = found[index];
	if (!target) {
		return { error: 'no clickable element at index ' + index + ' (found ' + found.length + ')' };
	}
	target.scrollIntoView({ behavior: 'instant', block: 'center' });
	target.click();
	return { clicked: true };
}`

// elementCenterScript returns the viewport center of the first match of a selector.
const elementCenterScript = `(selector) => {
	const el = document.querySelector(selector);
	if (!el) return { error: 'no element matches ' + selector };
	const rect = el.getBoundingClientRect();
	return { x: rect.left + rect.width / 2, y: rect.top + rect.height / 2 };
}`
